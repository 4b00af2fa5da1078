// Package health exposes the liveness/readiness endpoint.
package health

import (
	"context"
	"net/http"
	"time"

	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	"github.com/dropDatabas3/ssogate/internal/store/core"
)

type Controller struct {
	repo core.Repository
}

func NewController(repo core.Repository) *Controller {
	return &Controller{repo: repo}
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

func (c *Controller) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := c.repo.Ping(ctx); err != nil {
		httperrors.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Store: "down"})
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok", Store: "up"})
}
