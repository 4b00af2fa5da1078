package sso

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/ssogate/internal/cache"
	"github.com/dropDatabas3/ssogate/internal/credentials"
	"github.com/dropDatabas3/ssogate/internal/metrics"
	"github.com/dropDatabas3/ssogate/internal/oauth"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
)

const loginCodePrefix = "sso:code:"

// CallbackDeps wires the callback service.
type CallbackDeps struct {
	Registry    *oauth.Registry
	Credentials credentials.Store
	Reconciler  Reconciler

	// Signer recovers the redirect_uri from self-issued states. Optional.
	Signer *Signer

	// Cache backs the one-time login code when a redirect_uri is present.
	Cache        cache.Cache
	LoginCodeTTL time.Duration
}

type callbackService struct {
	registry     *oauth.Registry
	creds        credentials.Store
	reconciler   Reconciler
	signer       *Signer
	cache        cache.Cache
	loginCodeTTL time.Duration
}

func NewCallbackService(d CallbackDeps) CallbackService {
	ttl := d.LoginCodeTTL
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &callbackService{
		registry:     d.Registry,
		creds:        d.Credentials,
		reconciler:   d.Reconciler,
		signer:       d.Signer,
		cache:        d.Cache,
		loginCodeTTL: ttl,
	}
}

// Callback drives the strict exchange → profile → reconcile sequence.
// A provider-side failure at either hop comes back verbatim in the result
// and stops the chain before any persistence write.
func (s *callbackService) Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("sso.callback"), logger.Provider(req.Provider))

	if req.Code == "" {
		return nil, ErrMissingCode
	}

	adapter, ok := s.registry.Get(req.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderUnknown, req.Provider)
	}

	creds, err := s.creds.Get(ctx, req.Provider)
	if err != nil {
		log.Error("credentials lookup failed", logger.Err(err))
		return nil, err
	}

	tok, err := adapter.ExchangeCode(ctx, req.Code, creds)
	if err != nil {
		var ue *oauth.UpstreamError
		if errors.As(err, &ue) {
			log.Warn("token exchange rejected", logger.Int("status", ue.Status))
			metrics.LoginResult(req.Provider, "exchange_failed")
			return &CallbackResult{Upstream: ue}, nil
		}
		log.Error("token exchange transport failure", logger.Err(err))
		metrics.LoginResult(req.Provider, "exchange_error")
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	profile, err := adapter.FetchProfile(ctx, tok.AccessToken)
	if err != nil {
		var ue *oauth.UpstreamError
		if errors.As(err, &ue) {
			log.Warn("profile fetch rejected", logger.Int("status", ue.Status))
			metrics.LoginResult(req.Provider, "profile_failed")
			return &CallbackResult{Upstream: ue}, nil
		}
		log.Error("profile fetch transport failure", logger.Err(err))
		metrics.LoginResult(req.Provider, "profile_error")
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	record, account, err := s.reconciler.Reconcile(ctx, req.Provider, profile, tok, adapter.Config().DefaultPreferences)
	if err != nil {
		log.Error("reconcile failed", logger.Err(err))
		metrics.LoginResult(req.Provider, "reconcile_error")
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	resp := &LoginResponse{
		Provider:     req.Provider,
		UserID:       account.UserID,
		AccountID:    record.AccountID,
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    record.ExpiresAt,
	}

	metrics.LoginResult(req.Provider, "ok")
	log.Info("login completed", logger.UserID(account.UserID), logger.AccountID(record.AccountID))

	// A redirect_uri in a self-issued state switches to the login-code
	// flow: the token payload waits in cache behind a one-time code.
	if redirectURI := s.redirectURI(req.State, req.Provider); redirectURI != "" && s.cache != nil {
		loginCode, err := generateNonce(32)
		if err != nil {
			return nil, err
		}
		payload, _ := json.Marshal(resp)
		s.cache.Set(loginCodePrefix+loginCode, payload, s.loginCodeTTL)

		return &CallbackResult{RedirectURL: appendCode(redirectURI, loginCode)}, nil
	}

	return &CallbackResult{Response: resp}, nil
}

// redirectURI recovers the redirect target from a self-issued state.
// Opaque caller states simply yield none.
func (s *callbackService) redirectURI(state, provider string) string {
	if state == "" || s.signer == nil {
		return ""
	}
	claims, err := s.signer.ParseState(state)
	if err != nil || claims == nil {
		return ""
	}
	if !strings.EqualFold(claims.Provider, provider) {
		return ""
	}
	return claims.RedirectURI
}

func appendCode(redirectURI, code string) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		sep := "?"
		if strings.Contains(redirectURI, "?") {
			sep = "&"
		}
		return redirectURI + sep + "code=" + url.QueryEscape(code)
	}
	q := u.Query()
	q.Set("code", code)
	u.RawQuery = q.Encode()
	return u.String()
}
