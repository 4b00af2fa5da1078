package sso

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/ssogate/internal/credentials"
	"github.com/dropDatabas3/ssogate/internal/metrics"
	"github.com/dropDatabas3/ssogate/internal/oauth"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
)

// StartDeps wires the start service.
type StartDeps struct {
	Registry    *oauth.Registry
	Credentials credentials.Store

	// Signer is optional; without it a request with no caller state gets a
	// random opaque one.
	Signer *Signer
}

type startService struct {
	registry *oauth.Registry
	creds    credentials.Store
	signer   *Signer
}

func NewStartService(d StartDeps) StartService {
	return &startService{
		registry: d.Registry,
		creds:    d.Credentials,
		signer:   d.Signer,
	}
}

// Start resolves credentials, builds the authorization URL, and hands the
// caller the redirect target. Credential lookup failure is fatal for the
// request and propagates as an error.
func (s *startService) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("sso.start"), logger.Provider(req.Provider))

	adapter, ok := s.registry.Get(req.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnknown, req.Provider)
	}

	creds, err := s.creds.Get(ctx, req.Provider)
	if err != nil {
		log.Error("credentials lookup failed", logger.Err(err))
		return nil, err
	}

	// Caller state round-trips unchanged. Without one we self-issue: a
	// signed state carrying the redirect_uri, or a plain nonce as last
	// resort.
	state := req.State
	if state == "" {
		nonce, err := generateNonce(16)
		if err != nil {
			return nil, err
		}
		if s.signer != nil {
			state, err = s.signer.SignState(StateClaims{
				Provider:    req.Provider,
				RedirectURI: req.RedirectURI,
				Nonce:       nonce,
			})
			if err != nil {
				log.Error("state signing failed", logger.Err(err))
				return nil, err
			}
		} else {
			state = nonce
		}
	}

	authURL, err := adapter.AuthURL(ctx, state, creds)
	if err != nil {
		log.Error("auth url build failed", logger.Err(err))
		return nil, err
	}

	metrics.LoginStart(req.Provider)
	log.Info("login started")
	return &StartResult{RedirectURL: authURL}, nil
}
