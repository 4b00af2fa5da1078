// Package sso orchestrates the provider login flow: start redirect,
// callback exchange, account reconciliation, and the one-time login-code
// exchange. Provider specifics stay behind oauth.Adapter.
package sso

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/ssogate/internal/oauth"
)

// StartRequest begins a login. State is caller-supplied and opaque; when
// empty a signed state is generated.
type StartRequest struct {
	Provider    string
	State       string
	RedirectURI string
}

type StartResult struct {
	RedirectURL string
}

// CallbackRequest carries the provider redirect parameters.
type CallbackRequest struct {
	Provider string
	Code     string
	State    string
}

// LoginResponse is the success payload handed to the caller: the persisted
// access-token record plus its owning identifiers.
type LoginResponse struct {
	Provider     string     `json:"provider"`
	UserID       string     `json:"user_id"`
	AccountID    string     `json:"account_id"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// CallbackResult is a tagged result: exactly one of Upstream or Response is
// set. Upstream relays a provider failure verbatim (status + body);
// Response is the reconciled token record. RedirectURL is set instead of
// Response when the state carried a redirect_uri, in which case the token
// payload waits behind the one-time login code embedded in the URL.
type CallbackResult struct {
	Upstream    *oauth.UpstreamError
	Response    *LoginResponse
	RedirectURL string
}

type StartService interface {
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
}

type CallbackService interface {
	Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error)
}

type ExchangeService interface {
	// Exchange trades a one-time login code for the token payload.
	Exchange(ctx context.Context, code string) (*LoginResponse, error)
}

var (
	ErrProviderUnknown = errors.New("provider not registered")
	ErrMissingCode     = errors.New("code required")
	ErrMissingState    = errors.New("state required")
	ErrCodeUnknown     = errors.New("login code unknown or already used")
)
