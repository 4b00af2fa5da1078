package sso

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
	ssosvc "github.com/dropDatabas3/ssogate/internal/sso"
)

// ExchangeController handles POST /auth/exchange: one-time login code in,
// token payload out.
type ExchangeController struct {
	svc ssosvc.ExchangeService
}

type exchangeRequest struct {
	Code string `json:"code"`
}

func (c *ExchangeController) Exchange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ExchangeController.Exchange"))

	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}
	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing code"))
		return
	}

	res, err := c.svc.Exchange(ctx, req.Code)
	if err != nil {
		if errors.Is(err, ssosvc.ErrCodeUnknown) {
			httperrors.WriteError(w, httperrors.ErrInvalidLoginCode)
			return
		}
		log.Error("exchange failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	httperrors.WriteJSON(w, http.StatusOK, res)
}
