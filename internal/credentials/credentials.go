// Package credentials resolves provider client credentials. The primary
// source is the sso_provider_credential table with the client_secret
// encrypted at rest; config-file credentials act as fallback for providers
// not yet seeded into the database.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/ssogate/internal/oauth"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
	"github.com/dropDatabas3/ssogate/internal/security/secretbox"
	"github.com/dropDatabas3/ssogate/internal/store/core"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// ErrUnknownProvider means no credentials exist for the provider anywhere.
// Callers treat it as a fatal configuration error, not a user-facing one.
var ErrUnknownProvider = errors.New("unknown provider")

// Store resolves client credentials by provider identifier.
type Store interface {
	Get(ctx context.Context, provider string) (oauth.ClientCredentials, error)
}

type Service struct {
	repo   core.Repository
	static map[string]oauth.ClientCredentials
	cache  *gocache.Cache
	sf     singleflight.Group
}

type Deps struct {
	// Repo is optional; without it only static credentials resolve.
	Repo core.Repository

	// Static holds config-file credentials keyed by provider.
	Static map[string]oauth.ClientCredentials

	// CacheTTL bounds how long a resolved credential is reused.
	CacheTTL time.Duration
}

func New(d Deps) *Service {
	ttl := d.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	static := d.Static
	if static == nil {
		static = map[string]oauth.ClientCredentials{}
	}
	return &Service{
		repo:   d.Repo,
		static: static,
		cache:  gocache.New(ttl, time.Minute),
	}
}

// Get returns the client credentials for provider. Concurrent lookups for
// the same provider share one fetch+decrypt via singleflight.
func (s *Service) Get(ctx context.Context, provider string) (oauth.ClientCredentials, error) {
	if v, ok := s.cache.Get(provider); ok {
		return v.(oauth.ClientCredentials), nil
	}

	out, err, _ := s.sf.Do(provider, func() (any, error) {
		creds, err := s.resolve(ctx, provider)
		if err != nil {
			return oauth.ClientCredentials{}, err
		}
		s.cache.SetDefault(provider, creds)
		return creds, nil
	})
	if err != nil {
		return oauth.ClientCredentials{}, err
	}
	return out.(oauth.ClientCredentials), nil
}

func (s *Service) resolve(ctx context.Context, provider string) (oauth.ClientCredentials, error) {
	log := logger.From(ctx).With(logger.Component("credentials"), logger.Provider(provider))

	if s.repo != nil {
		rec, err := s.repo.GetProviderCredential(ctx, provider)
		switch {
		case err == nil:
			secret, derr := secretbox.Decrypt(rec.ClientSecretEnc)
			if derr != nil {
				log.Error("client secret decrypt failed", logger.Err(derr))
				return oauth.ClientCredentials{}, fmt.Errorf("decrypt credential for %s: %w", provider, derr)
			}
			return oauth.ClientCredentials{ClientID: rec.ClientID, ClientSecret: secret}, nil
		case errors.Is(err, core.ErrNotFound):
			// fall through to static
		default:
			return oauth.ClientCredentials{}, fmt.Errorf("lookup credential for %s: %w", provider, err)
		}
	}

	if creds, ok := s.static[provider]; ok && creds.ClientID != "" {
		return creds, nil
	}

	log.Warn("no credentials configured")
	return oauth.ClientCredentials{}, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
}
