package sso

import (
	"net/http"
	"sort"

	httperrors "github.com/dropDatabas3/ssogate/internal/http/errors"
	"github.com/dropDatabas3/ssogate/internal/oauth"
)

// ProvidersController handles GET /auth/providers.
type ProvidersController struct {
	registry *oauth.Registry
}

type providersResponse struct {
	Providers []string `json:"providers"`
}

func (c *ProvidersController) List(w http.ResponseWriter, r *http.Request) {
	names := c.registry.Names()
	sort.Strings(names)
	httperrors.WriteJSON(w, http.StatusOK, providersResponse{Providers: names})
}
