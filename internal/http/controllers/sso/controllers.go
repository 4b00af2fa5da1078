// Package sso contains the controllers for the login flow endpoints.
package sso

import (
	"github.com/dropDatabas3/ssogate/internal/oauth"
	ssosvc "github.com/dropDatabas3/ssogate/internal/sso"
)

// Controllers groups the login flow controllers.
type Controllers struct {
	Start     *StartController
	Callback  *CallbackController
	Exchange  *ExchangeController
	Providers *ProvidersController
}

// Deps carries everything the controllers need.
type Deps struct {
	Start    ssosvc.StartService
	Callback ssosvc.CallbackService
	Exchange ssosvc.ExchangeService
	Registry *oauth.Registry
	Signer   *ssosvc.Signer // optional, recovers redirect_uri on provider errors
}

func NewControllers(d Deps) *Controllers {
	return &Controllers{
		Start:     &StartController{svc: d.Start},
		Callback:  &CallbackController{svc: d.Callback, signer: d.Signer},
		Exchange:  &ExchangeController{svc: d.Exchange},
		Providers: &ProvidersController{registry: d.Registry},
	}
}
