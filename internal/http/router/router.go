// Package router wires controllers and middlewares into the service mux.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	healthctrl "github.com/dropDatabas3/ssogate/internal/http/controllers/health"
	ssoctrl "github.com/dropDatabas3/ssogate/internal/http/controllers/sso"
	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	mw "github.com/dropDatabas3/ssogate/internal/http/middlewares"
	"github.com/dropDatabas3/ssogate/internal/rate"
)

// Deps carries everything the router mounts.
type Deps struct {
	SSO    *ssoctrl.Controllers
	Health *healthctrl.Controller

	// RateLimiter, when set, throttles the /auth routes per client IP.
	RateLimiter rate.Limiter

	// MetricsRegistry defaults to the global registerer.
	MetricsRegistry prometheus.Registerer
}

// New builds the service handler: chi mux wrapped in the standard
// middleware chain.
func New(d Deps) (http.Handler, error) {
	metricsHandler, err := mw.RegisterMetrics(d.MetricsRegistry)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	r.Route("/auth", func(r chi.Router) {
		if d.RateLimiter != nil {
			r.Use(mw.WithRateLimit(d.RateLimiter))
		}
		r.Get("/providers", d.SSO.Providers.List)
		r.Post("/exchange", d.SSO.Exchange.Exchange)
		r.Get("/{provider}/start", d.SSO.Start.Start)
		r.Get("/{provider}/callback", d.SSO.Callback.Callback)
	})

	r.Get("/healthz", d.Health.Healthz)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	return mw.Chain(r,
		mw.WithRequestID(),
		mw.WithRecover(),
		mw.WithLogging(),
		mw.WithMetrics(),
		mw.WithSecurityHeaders(),
		mw.WithNoStore(),
	), nil
}
