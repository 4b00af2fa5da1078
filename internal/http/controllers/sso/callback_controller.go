package sso

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
	ssosvc "github.com/dropDatabas3/ssogate/internal/sso"
)

// CallbackController handles GET /auth/{provider}/callback.
type CallbackController struct {
	svc    ssosvc.CallbackService
	signer *ssosvc.Signer
}

func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	provider := strings.ToLower(chi.URLParam(r, "provider"))
	if provider == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing provider"))
		return
	}

	q := r.URL.Query()
	state := strings.TrimSpace(q.Get("state"))

	// The provider may come back with an error instead of a code.
	if idpErr := strings.TrimSpace(q.Get("error")); idpErr != "" {
		idpDesc := strings.TrimSpace(q.Get("error_description"))
		log.Warn("provider returned error",
			logger.Provider(provider),
			logger.String("error", idpErr),
			logger.String("description", idpDesc),
		)
		if redirectURI := c.recoverRedirectURI(provider, state); redirectURI != "" {
			redirectWithError(w, r, redirectURI, idpErr, idpDesc)
			return
		}
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("provider error: "+idpErr))
		return
	}

	req := ssosvc.CallbackRequest{
		Provider: provider,
		Code:     strings.TrimSpace(q.Get("code")),
		State:    state,
	}

	res, err := c.svc.Callback(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, ssosvc.ErrProviderUnknown):
			httperrors.WriteError(w, httperrors.ErrUnknownProvider)
		case errors.Is(err, ssosvc.ErrMissingCode), errors.Is(err, ssosvc.ErrMissingState):
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail(err.Error()))
		default:
			log.Error("callback failed", logger.Provider(provider), logger.Err(err))
			httperrors.WriteError(w, err)
		}
		return
	}

	// Provider rejection: relay status and body verbatim.
	if ue := res.Upstream; ue != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(ue.Status)
		_, _ = w.Write(ue.Body)
		return
	}

	if res.RedirectURL != "" {
		http.Redirect(w, r, res.RedirectURL, http.StatusFound)
		return
	}

	httperrors.WriteJSON(w, http.StatusOK, res.Response)
}

// recoverRedirectURI parses a self-issued state to find where to send the
// client on provider errors. Opaque caller states yield "".
func (c *CallbackController) recoverRedirectURI(provider, state string) string {
	if c.signer == nil || state == "" {
		return ""
	}
	claims, err := c.signer.ParseState(state)
	if err != nil || !strings.EqualFold(claims.Provider, provider) {
		return ""
	}
	return claims.RedirectURI
}

func redirectWithError(w http.ResponseWriter, r *http.Request, redirectURI, code, desc string) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid redirect_uri"))
		return
	}
	q := u.Query()
	q.Set("error", code)
	if desc != "" {
		q.Set("error_description", desc)
	}
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}
