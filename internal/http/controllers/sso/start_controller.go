package sso

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
	ssosvc "github.com/dropDatabas3/ssogate/internal/sso"
)

// StartController handles GET /auth/{provider}/start.
type StartController struct {
	svc ssosvc.StartService
}

func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	provider := strings.ToLower(chi.URLParam(r, "provider"))
	if provider == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing provider"))
		return
	}

	q := r.URL.Query()
	req := ssosvc.StartRequest{
		Provider:    provider,
		State:       strings.TrimSpace(q.Get("state")),
		RedirectURI: strings.TrimSpace(q.Get("redirect_uri")),
	}

	res, err := c.svc.Start(ctx, req)
	if err != nil {
		if errors.Is(err, ssosvc.ErrProviderUnknown) {
			httperrors.WriteError(w, httperrors.ErrUnknownProvider)
			return
		}
		log.Error("start failed", logger.Provider(provider), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	// SPA clients ask for the URL instead of following a redirect.
	if q.Get("mode") == "json" {
		httperrors.WriteJSON(w, http.StatusOK, map[string]string{"authorization_url": res.RedirectURL})
		return
	}

	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}
