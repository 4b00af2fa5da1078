package sso_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	cachemem "github.com/dropDatabas3/ssogate/internal/cache/memory"
	"github.com/dropDatabas3/ssogate/internal/credentials"
	"github.com/dropDatabas3/ssogate/internal/oauth"
	"github.com/dropDatabas3/ssogate/internal/sso"
	storemem "github.com/dropDatabas3/ssogate/internal/store/memory"
)

// fakeAdapter scripts provider behavior per test.
type fakeAdapter struct {
	cfg oauth.Config

	exchangeTok  *oauth.TokenInfo
	exchangeErr  error
	profile      *oauth.Profile
	profileErr   error
	exchangeHits int
	profileHits  int
}

func (f *fakeAdapter) Name() string         { return f.cfg.Provider }
func (f *fakeAdapter) Config() oauth.Config { return f.cfg }

func (f *fakeAdapter) AuthURL(_ context.Context, state string, creds oauth.ClientCredentials) (string, error) {
	return f.cfg.AuthorizeURL + "?client_id=" + url.QueryEscape(creds.ClientID) + "&state=" + url.QueryEscape(state), nil
}

func (f *fakeAdapter) ExchangeCode(context.Context, string, oauth.ClientCredentials) (*oauth.TokenInfo, error) {
	f.exchangeHits++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.exchangeTok, nil
}

func (f *fakeAdapter) FetchProfile(context.Context, string) (*oauth.Profile, error) {
	f.profileHits++
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

type callbackFixture struct {
	adapter *fakeAdapter
	store   *storemem.Store
	signer  *sso.Signer
	svc     sso.CallbackService
	exch    sso.ExchangeService
}

func newCallbackFixture(t *testing.T, adapter *fakeAdapter, signer *sso.Signer) *callbackFixture {
	t.Helper()

	registry := oauth.NewRegistry()
	registry.Register(adapter)

	store := storemem.New()
	c := cachemem.New(time.Minute)

	creds := credentials.New(credentials.Deps{
		Static: map[string]oauth.ClientCredentials{
			adapter.Name(): {ClientID: "cid", ClientSecret: "secret"},
		},
	})

	return &callbackFixture{
		adapter: adapter,
		store:   store,
		signer:  signer,
		svc: sso.NewCallbackService(sso.CallbackDeps{
			Registry:     registry,
			Credentials:  creds,
			Reconciler:   sso.NewReconciler(store, nil),
			Signer:       signer,
			Cache:        c,
			LoginCodeTTL: time.Minute,
		}),
		exch: sso.NewExchangeService(c),
	}
}

func googleAdapter() *fakeAdapter {
	return &fakeAdapter{
		cfg: oauth.Config{
			Provider:           "google",
			AuthorizeURL:       "https://idp.example/authorize",
			DefaultPreferences: map[string]any{"locale": "en"},
		},
		exchangeTok: testToken("tok1"),
		profile:     testProfile(),
	}
}

func TestCallback_ExchangeRejectionRelayedVerbatim(t *testing.T) {
	adapter := googleAdapter()
	adapter.exchangeErr = &oauth.UpstreamError{
		Provider: "google",
		Endpoint: "token",
		Status:   400,
		Body:     []byte(`{"error":"invalid_grant"}`),
	}
	fx := newCallbackFixture(t, adapter, nil)

	res, err := fx.svc.Callback(context.Background(), sso.CallbackRequest{Provider: "google", Code: "abc123", State: "s"})
	require.NoError(t, err)
	require.NotNil(t, res.Upstream)
	require.Equal(t, 400, res.Upstream.Status)
	require.JSONEq(t, `{"error":"invalid_grant"}`, string(res.Upstream.Body))
	require.Nil(t, res.Response)

	// Failed exchange short-circuits: no profile fetch, no writes.
	require.Zero(t, fx.adapter.profileHits)
	users, links, tokens := fx.store.Counts()
	require.Zero(t, users+links+tokens)
}

func TestCallback_ExchangeTransportFailureIsAnError(t *testing.T) {
	adapter := googleAdapter()
	adapter.exchangeErr = errors.New("dial tcp: connection refused")
	fx := newCallbackFixture(t, adapter, nil)

	res, err := fx.svc.Callback(context.Background(), sso.CallbackRequest{Provider: "google", Code: "abc123", State: "s"})
	require.Error(t, err)
	require.Nil(t, res)

	users, links, tokens := fx.store.Counts()
	require.Zero(t, users+links+tokens)
}

func TestCallback_ProfileRejectionRelayedVerbatim(t *testing.T) {
	adapter := googleAdapter()
	adapter.profileErr = &oauth.UpstreamError{
		Provider: "google",
		Endpoint: "userinfo",
		Status:   401,
		Body:     []byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`),
	}
	fx := newCallbackFixture(t, adapter, nil)

	res, err := fx.svc.Callback(context.Background(), sso.CallbackRequest{Provider: "google", Code: "abc123", State: "s"})
	require.NoError(t, err)
	require.NotNil(t, res.Upstream)
	require.Equal(t, 401, res.Upstream.Status)

	require.Equal(t, 1, fx.adapter.exchangeHits)
	users, links, tokens := fx.store.Counts()
	require.Zero(t, users+links+tokens)
}

func TestCallback_MissingCode(t *testing.T) {
	fx := newCallbackFixture(t, googleAdapter(), nil)

	_, err := fx.svc.Callback(context.Background(), sso.CallbackRequest{Provider: "google", State: "s"})
	require.ErrorIs(t, err, sso.ErrMissingCode)
	require.Zero(t, fx.adapter.exchangeHits)
}

func TestCallback_UnknownProvider(t *testing.T) {
	fx := newCallbackFixture(t, googleAdapter(), nil)

	_, err := fx.svc.Callback(context.Background(), sso.CallbackRequest{Provider: "gitlab", Code: "abc123"})
	require.ErrorIs(t, err, sso.ErrProviderUnknown)
}

func TestCallback_SuccessReturnsLoginResponse(t *testing.T) {
	fx := newCallbackFixture(t, googleAdapter(), nil)

	res, err := fx.svc.Callback(context.Background(), sso.CallbackRequest{Provider: "google", Code: "abc123", State: "opaque-caller-state"})
	require.NoError(t, err)
	require.Nil(t, res.Upstream)
	require.Empty(t, res.RedirectURL)

	require.NotNil(t, res.Response)
	require.Equal(t, "google", res.Response.Provider)
	require.NotEmpty(t, res.Response.UserID)
	require.NotEmpty(t, res.Response.AccountID)
	require.Equal(t, "tok1", res.Response.AccessToken)

	users, links, tokens := fx.store.Counts()
	require.Equal(t, 1, users)
	require.Equal(t, 1, links)
	require.Equal(t, 1, tokens)
}

func TestCallback_SignedStateRedirectsWithOneTimeCode(t *testing.T) {
	signer := sso.NewSigner([]byte("test-secret"), time.Minute)
	fx := newCallbackFixture(t, googleAdapter(), signer)

	state, err := signer.SignState(sso.StateClaims{
		Provider:    "google",
		RedirectURI: "https://app.example/done",
		Nonce:       "n1",
	})
	require.NoError(t, err)

	res, err := fx.svc.Callback(context.Background(), sso.CallbackRequest{Provider: "google", Code: "abc123", State: state})
	require.NoError(t, err)
	require.Nil(t, res.Response)
	require.True(t, strings.HasPrefix(res.RedirectURL, "https://app.example/done?code="))

	u, err := url.Parse(res.RedirectURL)
	require.NoError(t, err)
	loginCode := u.Query().Get("code")
	require.NotEmpty(t, loginCode)

	// The code trades for the payload exactly once.
	payload, err := fx.exch.Exchange(context.Background(), loginCode)
	require.NoError(t, err)
	require.Equal(t, "tok1", payload.AccessToken)
	require.Equal(t, "google", payload.Provider)

	_, err = fx.exch.Exchange(context.Background(), loginCode)
	require.ErrorIs(t, err, sso.ErrCodeUnknown)
}

func TestCallback_StateForOtherProviderStaysInline(t *testing.T) {
	signer := sso.NewSigner([]byte("test-secret"), time.Minute)
	fx := newCallbackFixture(t, googleAdapter(), signer)

	state, err := signer.SignState(sso.StateClaims{
		Provider:    "github",
		RedirectURI: "https://app.example/done",
		Nonce:       "n1",
	})
	require.NoError(t, err)

	res, err := fx.svc.Callback(context.Background(), sso.CallbackRequest{Provider: "google", Code: "abc123", State: state})
	require.NoError(t, err)
	require.Empty(t, res.RedirectURL)
	require.NotNil(t, res.Response)
}
