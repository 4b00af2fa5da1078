// Package oauth defines the provider-agnostic adapter contract for the
// authorization-code login flow. Each identity provider implements Adapter
// as a pure translation layer between our internal shapes and its wire
// shapes; the login services never import a concrete provider.
package oauth

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Config holds the immutable per-provider settings. It is built once at
// startup and passed to the adapter at construction, never mutated after.
type Config struct {
	Provider     string
	AuthorizeURL string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string

	// DefaultPreferences seeds new local users created on first login.
	DefaultPreferences map[string]any
}

// ClientCredentials are the provider-issued client_id/client_secret.
// Resolved from the credentials store per request; never logged.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// TokenInfo is the provider token payload in transit.
type TokenInfo struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// ExpiresAt converts ExpiresIn into an absolute expiry. Zero time when the
// provider did not report a lifetime.
func (t *TokenInfo) ExpiresAt(now time.Time) time.Time {
	if t.ExpiresIn <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(t.ExpiresIn) * time.Second)
}

// Profile carries the identity claims used to key reconciliation.
type Profile struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	Picture        string
}

// UpstreamError is a non-success response from the provider, relayed
// verbatim (status + body) so callers can surface provider detail.
// Transport failures (no response at all) stay plain errors and never
// take this shape.
type UpstreamError struct {
	Provider string
	Endpoint string // "token" | "userinfo"
	Status   int
	Body     []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s endpoint: http %d", e.Provider, e.Endpoint, e.Status)
}

// Adapter is the capability set every provider implements.
type Adapter interface {
	// Name returns the provider identifier ("google", "github").
	Name() string

	// Config returns the adapter's immutable configuration.
	Config() Config

	// AuthURL builds the authorization redirect target. The caller-supplied
	// state is passed through unmodified. No side effects.
	AuthURL(ctx context.Context, state string, creds ClientCredentials) (string, error)

	// ExchangeCode trades the authorization code for a token. A non-2xx
	// provider response comes back as *UpstreamError.
	ExchangeCode(ctx context.Context, code string, creds ClientCredentials) (*TokenInfo, error)

	// FetchProfile fetches identity claims with the access token. Same
	// error policy as ExchangeCode.
	FetchProfile(ctx context.Context, accessToken string) (*Profile, error)
}

// Registry maps provider identifiers to adapters, selected at request time.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	r.adapters[a.Name()] = a
	r.mu.Unlock()
}

func (r *Registry) Get(provider string) (Adapter, bool) {
	r.mu.RLock()
	a, ok := r.adapters[provider]
	r.mu.RUnlock()
	return a, ok
}

// Names returns the registered provider identifiers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		out = append(out, name)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
