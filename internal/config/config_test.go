package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/ssogate/internal/config"
)

func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "app:\n  env: dev\n"))
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, "memory", cfg.Storage.Driver)
	require.Equal(t, "memory", cfg.Cache.Kind)
	require.Equal(t, 10*time.Minute, cfg.StateTTL())
	require.Equal(t, 60*time.Second, cfg.LoginCodeTTL())
	require.Equal(t, []string{"openid", "email", "profile"}, cfg.Providers.Google.Scopes)
	require.Equal(t, 2*time.Minute, cfg.MemoryCacheTTL())
	require.False(t, cfg.Server.RateLimit.Enabled)
	require.Equal(t, 60, cfg.Server.RateLimit.Max)
	require.Equal(t, time.Minute, cfg.RateLimitWindow())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("GOOGLE_ENABLED", "true")
	t.Setenv("GOOGLE_CLIENT_ID", "env-cid")
	t.Setenv("GOOGLE_SCOPES", "openid, email")
	t.Setenv("SSO_LOGIN_CODE_TTL", "90s")

	cfg, err := config.Load(writeConfig(t, "server:\n  addr: \":8080\"\n"))
	require.NoError(t, err)

	require.Equal(t, ":9999", cfg.Server.Addr)
	require.True(t, cfg.Providers.Google.Enabled)
	require.Equal(t, "env-cid", cfg.Providers.Google.ClientID)
	require.Equal(t, []string{"openid", "email"}, cfg.Providers.Google.Scopes)
	require.Equal(t, 90*time.Second, cfg.LoginCodeTTL())
}

func TestLoad_RedirectURLDerivedFromBaseURL(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, `
server:
  base_url: "https://sso.example.com/"
providers:
  google:
    enabled: true
    client_id: cid
`))
	require.NoError(t, err)
	require.Equal(t, "https://sso.example.com/auth/google/callback", cfg.Providers.Google.RedirectURL)
}

func TestLoad_PGRequiresDSN(t *testing.T) {
	_, err := config.Load(writeConfig(t, "storage:\n  driver: pg\n"))
	require.Error(t, err)
}

func TestLoad_ProdRequiresSigningSecret(t *testing.T) {
	_, err := config.Load(writeConfig(t, "app:\n  env: prod\n"))
	require.Error(t, err)

	_, err = config.Load(writeConfig(t, "app:\n  env: prod\nstate:\n  signing_secret: s3cret\n"))
	require.NoError(t, err)
}
