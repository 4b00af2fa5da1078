package sso_test

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/ssogate/internal/credentials"
	"github.com/dropDatabas3/ssogate/internal/oauth"
	"github.com/dropDatabas3/ssogate/internal/sso"
)

func newStartService(adapter *fakeAdapter, signer *sso.Signer) sso.StartService {
	registry := oauth.NewRegistry()
	registry.Register(adapter)
	return sso.NewStartService(sso.StartDeps{
		Registry: registry,
		Credentials: credentials.New(credentials.Deps{
			Static: map[string]oauth.ClientCredentials{
				adapter.Name(): {ClientID: "cid", ClientSecret: "secret"},
			},
		}),
		Signer: signer,
	})
}

func TestStart_CallerStatePassesThroughUnchanged(t *testing.T) {
	svc := newStartService(googleAdapter(), nil)

	res, err := svc.Start(context.Background(), sso.StartRequest{Provider: "google", State: "caller-opaque-state"})
	require.NoError(t, err)

	u, err := url.Parse(res.RedirectURL)
	require.NoError(t, err)
	require.Equal(t, "caller-opaque-state", u.Query().Get("state"))
	require.Equal(t, "cid", u.Query().Get("client_id"))
}

func TestStart_EmptyStateGetsSelfIssuedSignedState(t *testing.T) {
	signer := sso.NewSigner([]byte("test-secret"), time.Minute)
	svc := newStartService(googleAdapter(), signer)

	res, err := svc.Start(context.Background(), sso.StartRequest{Provider: "google", RedirectURI: "https://app.example/done"})
	require.NoError(t, err)

	u, err := url.Parse(res.RedirectURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)

	claims, err := signer.ParseState(state)
	require.NoError(t, err)
	require.Equal(t, "google", claims.Provider)
	require.Equal(t, "https://app.example/done", claims.RedirectURI)
	require.NotEmpty(t, claims.Nonce)
}

func TestStart_EmptyStateWithoutSignerIsRandom(t *testing.T) {
	svc := newStartService(googleAdapter(), nil)

	first, err := svc.Start(context.Background(), sso.StartRequest{Provider: "google"})
	require.NoError(t, err)
	second, err := svc.Start(context.Background(), sso.StartRequest{Provider: "google"})
	require.NoError(t, err)

	u1, _ := url.Parse(first.RedirectURL)
	u2, _ := url.Parse(second.RedirectURL)
	require.NotEmpty(t, u1.Query().Get("state"))
	require.NotEqual(t, u1.Query().Get("state"), u2.Query().Get("state"))
}

func TestStart_UnknownProvider(t *testing.T) {
	svc := newStartService(googleAdapter(), nil)

	_, err := svc.Start(context.Background(), sso.StartRequest{Provider: "gitlab"})
	require.ErrorIs(t, err, sso.ErrProviderUnknown)
}
