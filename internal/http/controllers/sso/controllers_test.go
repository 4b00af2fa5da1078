package sso_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	ctrl "github.com/dropDatabas3/ssogate/internal/http/controllers/sso"
	"github.com/dropDatabas3/ssogate/internal/oauth"
	ssosvc "github.com/dropDatabas3/ssogate/internal/sso"
)

type fakeStart struct {
	res *ssosvc.StartResult
	err error
	got ssosvc.StartRequest
}

func (f *fakeStart) Start(_ context.Context, req ssosvc.StartRequest) (*ssosvc.StartResult, error) {
	f.got = req
	return f.res, f.err
}

type fakeCallback struct {
	res *ssosvc.CallbackResult
	err error
	got ssosvc.CallbackRequest
}

func (f *fakeCallback) Callback(_ context.Context, req ssosvc.CallbackRequest) (*ssosvc.CallbackResult, error) {
	f.got = req
	return f.res, f.err
}

type fakeExchange struct {
	res *ssosvc.LoginResponse
	err error
}

func (f *fakeExchange) Exchange(context.Context, string) (*ssosvc.LoginResponse, error) {
	return f.res, f.err
}

type nullAdapter struct{ name string }

func (n *nullAdapter) Name() string         { return n.name }
func (n *nullAdapter) Config() oauth.Config { return oauth.Config{Provider: n.name} }
func (n *nullAdapter) AuthURL(context.Context, string, oauth.ClientCredentials) (string, error) {
	return "", nil
}
func (n *nullAdapter) ExchangeCode(context.Context, string, oauth.ClientCredentials) (*oauth.TokenInfo, error) {
	return nil, nil
}
func (n *nullAdapter) FetchProfile(context.Context, string) (*oauth.Profile, error) {
	return nil, nil
}

func newMux(d ctrl.Deps) http.Handler {
	c := ctrl.NewControllers(d)
	r := chi.NewRouter()
	r.Get("/auth/providers", c.Providers.List)
	r.Post("/auth/exchange", c.Exchange.Exchange)
	r.Get("/auth/{provider}/start", c.Start.Start)
	r.Get("/auth/{provider}/callback", c.Callback.Callback)
	return r
}

func TestStart_RedirectsToProvider(t *testing.T) {
	start := &fakeStart{res: &ssosvc.StartResult{RedirectURL: "https://idp.example/authorize?state=s"}}
	mux := newMux(ctrl.Deps{Start: start})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/start?state=s&redirect_uri=https%3A%2F%2Fapp.example%2Fdone", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://idp.example/authorize?state=s", rec.Header().Get("Location"))
	require.Equal(t, "google", start.got.Provider)
	require.Equal(t, "s", start.got.State)
	require.Equal(t, "https://app.example/done", start.got.RedirectURI)
}

func TestStart_JSONModeReturnsAuthorizationURL(t *testing.T) {
	start := &fakeStart{res: &ssosvc.StartResult{RedirectURL: "https://idp.example/authorize?state=s"}}
	mux := newMux(ctrl.Deps{Start: start})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/start?mode=json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"authorization_url":"https://idp.example/authorize?state=s"}`, rec.Body.String())
}

func TestStart_UnknownProviderIs404(t *testing.T) {
	start := &fakeStart{err: ssosvc.ErrProviderUnknown}
	mux := newMux(ctrl.Deps{Start: start})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/gitlab/start", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "UNKNOWN_PROVIDER")
}

func TestCallback_UpstreamRelayedVerbatim(t *testing.T) {
	cb := &fakeCallback{res: &ssosvc.CallbackResult{
		Upstream: &oauth.UpstreamError{
			Provider: "google",
			Endpoint: "token",
			Status:   400,
			Body:     []byte(`{"error":"invalid_grant"}`),
		},
	}}
	mux := newMux(ctrl.Deps{Callback: cb})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=expired&state=s", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, `{"error":"invalid_grant"}`, rec.Body.String())
}

func TestCallback_RedirectResult(t *testing.T) {
	cb := &fakeCallback{res: &ssosvc.CallbackResult{RedirectURL: "https://app.example/done?code=xyz"}}
	mux := newMux(ctrl.Deps{Callback: cb})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc123&state=s", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "https://app.example/done?code=xyz", rec.Header().Get("Location"))
}

func TestCallback_ProviderErrorParamWithoutState(t *testing.T) {
	cb := &fakeCallback{}
	mux := newMux(ctrl.Deps{Callback: cb})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google/callback?error=access_denied", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "access_denied")
	// The service is never reached.
	require.Empty(t, cb.got.Provider)
}

func TestExchange_InvalidCodeIs400(t *testing.T) {
	mux := newMux(ctrl.Deps{Exchange: &fakeExchange{err: ssosvc.ErrCodeUnknown}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/exchange", strings.NewReader(`{"code":"stale"}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_LOGIN_CODE")
}

func TestExchange_Success(t *testing.T) {
	mux := newMux(ctrl.Deps{Exchange: &fakeExchange{res: &ssosvc.LoginResponse{
		Provider: "google", UserID: "u1", AccountID: "a1", AccessToken: "tok1",
	}}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/exchange", strings.NewReader(`{"code":"xyz"}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"access_token":"tok1"`)
}

func TestProviders_List(t *testing.T) {
	registry := oauth.NewRegistry()
	registry.Register(&nullAdapter{name: "google"})
	registry.Register(&nullAdapter{name: "github"})
	mux := newMux(ctrl.Deps{Registry: registry})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/providers", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"providers":["github","google"]}`, rec.Body.String())
}
