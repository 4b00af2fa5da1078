package credentials_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/ssogate/internal/credentials"
	"github.com/dropDatabas3/ssogate/internal/oauth"
	"github.com/dropDatabas3/ssogate/internal/security/secretbox"
	"github.com/dropDatabas3/ssogate/internal/store/core"
	storemem "github.com/dropDatabas3/ssogate/internal/store/memory"
)

func TestMain(m *testing.M) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(err)
	}
	os.Setenv("SECRETBOX_MASTER_KEY", base64.StdEncoding.EncodeToString(key))
	os.Exit(m.Run())
}

func TestGet_RepoBackedCredentialDecrypted(t *testing.T) {
	store := storemem.New()
	enc, err := secretbox.Encrypt("db-secret")
	require.NoError(t, err)
	require.NoError(t, store.UpsertProviderCredential(context.Background(), &core.ProviderCredential{
		Provider:        "google",
		ClientID:        "db-cid",
		ClientSecretEnc: enc,
	}))

	svc := credentials.New(credentials.Deps{
		Repo: store,
		Static: map[string]oauth.ClientCredentials{
			"google": {ClientID: "static-cid", ClientSecret: "static-secret"},
		},
		CacheTTL: time.Minute,
	})

	// Database wins over the config-file fallback.
	got, err := svc.Get(context.Background(), "google")
	require.NoError(t, err)
	require.Equal(t, "db-cid", got.ClientID)
	require.Equal(t, "db-secret", got.ClientSecret)
}

func TestGet_StaticFallbackWhenNotSeeded(t *testing.T) {
	svc := credentials.New(credentials.Deps{
		Repo: storemem.New(),
		Static: map[string]oauth.ClientCredentials{
			"github": {ClientID: "static-cid", ClientSecret: "static-secret"},
		},
	})

	got, err := svc.Get(context.Background(), "github")
	require.NoError(t, err)
	require.Equal(t, "static-cid", got.ClientID)
}

func TestGet_UnknownProvider(t *testing.T) {
	svc := credentials.New(credentials.Deps{Repo: storemem.New()})

	_, err := svc.Get(context.Background(), "gitlab")
	require.ErrorIs(t, err, credentials.ErrUnknownProvider)
}

func TestGet_CachesResolvedCredential(t *testing.T) {
	store := storemem.New()
	enc, err := secretbox.Encrypt("v1")
	require.NoError(t, err)
	require.NoError(t, store.UpsertProviderCredential(context.Background(), &core.ProviderCredential{
		Provider: "google", ClientID: "cid", ClientSecretEnc: enc,
	}))

	svc := credentials.New(credentials.Deps{Repo: store, CacheTTL: time.Minute})

	got, err := svc.Get(context.Background(), "google")
	require.NoError(t, err)
	require.Equal(t, "v1", got.ClientSecret)

	// A database update is not visible until the cache TTL lapses.
	enc2, err := secretbox.Encrypt("v2")
	require.NoError(t, err)
	require.NoError(t, store.UpsertProviderCredential(context.Background(), &core.ProviderCredential{
		Provider: "google", ClientID: "cid", ClientSecretEnc: enc2,
	}))

	got, err = svc.Get(context.Background(), "google")
	require.NoError(t, err)
	require.Equal(t, "v1", got.ClientSecret)
}
