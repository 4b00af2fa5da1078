// Package config loads the service configuration: YAML file first, then
// environment overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider holds one identity provider's settings. The endpoint overrides
// exist for tests and self-hosted mocks; production leaves them empty and
// gets the provider's well-known endpoints.
type Provider struct {
	Enabled      bool     `yaml:"enabled"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`

	AuthorizeURL string `yaml:"authorize_url"`
	TokenURL     string `yaml:"token_url"`
	UserInfoURL  string `yaml:"userinfo_url"`

	// DefaultPreferences seeds users created on first login.
	DefaultPreferences map[string]any `yaml:"default_preferences"`
}

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr    string `yaml:"addr"`
		BaseURL string `yaml:"base_url"`

		// RateLimit throttles the /auth endpoints per client IP.
		RateLimit struct {
			Enabled bool   `yaml:"enabled"`
			Max     int    `yaml:"max"`
			Window  string `yaml:"window"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Storage struct {
		// pg | memory
		Driver   string `yaml:"driver"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	State struct {
		// SigningSecret enables signed self-issued states. Empty means
		// plain random states and no redirect_uri recovery.
		SigningSecret string `yaml:"signing_secret"`
		TTL           string `yaml:"ttl"`
	} `yaml:"state"`

	Providers struct {
		LoginCodeTTL        string `yaml:"login_code_ttl"`
		CredentialsCacheTTL string `yaml:"credentials_cache_ttl"`

		Google Provider `yaml:"google"`
		GitHub Provider `yaml:"github"`
	} `yaml:"providers"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"` // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
	} `yaml:"smtp"`

	Email struct {
		WelcomeEnabled bool `yaml:"welcome_enabled"`
	} `yaml:"email"`

	Flags struct {
		Migrate bool `yaml:"migrate"`
	} `yaml:"flags"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()
	c.applyEnvOverrides()

	if err := c.validate(); err != nil {
		return nil, err
	}

	// Derive provider redirect URLs from the public base URL when unset.
	if base := strings.TrimRight(c.Server.BaseURL, "/"); base != "" {
		if c.Providers.Google.Enabled && c.Providers.Google.RedirectURL == "" {
			c.Providers.Google.RedirectURL = base + "/auth/google/callback"
		}
		if c.Providers.GitHub.Enabled && c.Providers.GitHub.RedirectURL == "" {
			c.Providers.GitHub.RedirectURL = base + "/auth/github/callback"
		}
	}

	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.RateLimit.Max == 0 {
		c.Server.RateLimit.Max = 60
	}
	if c.Server.RateLimit.Window == "" {
		c.Server.RateLimit.Window = "1m"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "ssogate:"
	}
	if c.State.TTL == "" {
		c.State.TTL = "10m"
	}
	if c.Providers.LoginCodeTTL == "" {
		c.Providers.LoginCodeTTL = "60s"
	}
	if c.Providers.CredentialsCacheTTL == "" {
		c.Providers.CredentialsCacheTTL = "5m"
	}
	if len(c.Providers.Google.Scopes) == 0 {
		c.Providers.Google.Scopes = []string{"openid", "email", "profile"}
	}
	if len(c.Providers.GitHub.Scopes) == 0 {
		c.Providers.GitHub.Scopes = []string{"read:user", "user:email"}
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.Cache.Memory.DefaultTTL); err != nil {
		return fmt.Errorf("cache.memory.default_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.State.TTL); err != nil {
		return fmt.Errorf("state.ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.Providers.LoginCodeTTL); err != nil {
		return fmt.Errorf("providers.login_code_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.Providers.CredentialsCacheTTL); err != nil {
		return fmt.Errorf("providers.credentials_cache_ttl: %w", err)
	}
	if _, err := time.ParseDuration(c.Server.RateLimit.Window); err != nil {
		return fmt.Errorf("server.rate_limit.window: %w", err)
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return fmt.Errorf("storage.postgres.conn_max_lifetime: %w", err)
		}
	}
	switch c.Storage.Driver {
	case "pg":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn required for pg driver")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	switch c.Cache.Kind {
	case "memory":
	case "redis":
		if c.Cache.Redis.Addr == "" {
			return fmt.Errorf("cache.redis.addr required for redis cache")
		}
	default:
		return fmt.Errorf("cache.kind: unknown kind %q", c.Cache.Kind)
	}
	if strings.EqualFold(c.App.Env, "prod") && c.State.SigningSecret == "" {
		return fmt.Errorf("state.signing_secret required in prod")
	}
	return nil
}

// Duration accessors for the string fields above. All validated in Load.

func (c *Config) MemoryCacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.Memory.DefaultTTL)
	return d
}

func (c *Config) StateTTL() time.Duration {
	d, _ := time.ParseDuration(c.State.TTL)
	return d
}

func (c *Config) LoginCodeTTL() time.Duration {
	d, _ := time.ParseDuration(c.Providers.LoginCodeTTL)
	return d
}

func (c *Config) CredentialsCacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Providers.CredentialsCacheTTL)
	return d
}

func (c *Config) RateLimitWindow() time.Duration {
	d, _ := time.ParseDuration(c.Server.RateLimit.Window)
	return d
}

// ---- env helpers ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides lets the environment win over the YAML file.
func (c *Config) applyEnvOverrides() {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("SERVER_BASE_URL"); ok {
		c.Server.BaseURL = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvBool("RATE_LIMIT_ENABLED"); ok {
		c.Server.RateLimit.Enabled = v
	}
	if v, ok := getEnvInt("RATE_LIMIT_MAX"); ok {
		c.Server.RateLimit.Max = v
	}
	if v, ok := getEnvStr("RATE_LIMIT_WINDOW"); ok {
		c.Server.RateLimit.Window = v
	}

	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_OPEN_CONNS"); ok {
		c.Storage.Postgres.MaxOpenConns = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_IDLE_CONNS"); ok {
		c.Storage.Postgres.MaxIdleConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	if v, ok := getEnvStr("STATE_SIGNING_SECRET"); ok {
		c.State.SigningSecret = v
	}
	if v, ok := getEnvStr("STATE_TTL"); ok {
		c.State.TTL = v
	}

	if v, ok := getEnvStr("SSO_LOGIN_CODE_TTL"); ok {
		c.Providers.LoginCodeTTL = v
	}
	if v, ok := getEnvStr("SSO_CREDENTIALS_CACHE_TTL"); ok {
		c.Providers.CredentialsCacheTTL = v
	}

	applyProviderEnv("GOOGLE", &c.Providers.Google)
	applyProviderEnv("GITHUB", &c.Providers.GitHub)

	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS"); ok {
		c.SMTP.TLS = strings.ToLower(v)
	}
	if v, ok := getEnvBool("EMAIL_WELCOME_ENABLED"); ok {
		c.Email.WelcomeEnabled = v
	}

	if v, ok := getEnvBool("FLAGS_MIGRATE"); ok {
		c.Flags.Migrate = v
	}
}

func applyProviderEnv(prefix string, p *Provider) {
	if v, ok := getEnvBool(prefix + "_ENABLED"); ok {
		p.Enabled = v
	}
	if v, ok := getEnvStr(prefix + "_CLIENT_ID"); ok {
		p.ClientID = v
	}
	if v, ok := getEnvStr(prefix + "_CLIENT_SECRET"); ok {
		p.ClientSecret = v
	}
	if v, ok := getEnvStr(prefix + "_REDIRECT_URL"); ok {
		p.RedirectURL = v
	}
	if v, ok := getEnvCSV(prefix + "_SCOPES"); ok && len(v) > 0 {
		p.Scopes = v
	}
}
