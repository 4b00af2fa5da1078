// Package memory backs core.Repository with in-process maps. It serves
// the no-database dev mode and the unit tests; writes are not durable.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/ssogate/internal/store/core"
	"github.com/google/uuid"
)

type linkKey struct {
	provider       string
	providerUserID string
}

type Store struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	users map[string]*core.User
	links map[linkKey]*core.AccountLink
	// tokens keyed by account id: one record per link, latest wins.
	tokens map[string]*core.AccessTokenRecord
	creds  map[string]*core.ProviderCredential
}

func New() *Store {
	return &Store{
		users:  make(map[string]*core.User),
		links:  make(map[linkKey]*core.AccountLink),
		tokens: make(map[string]*core.AccessTokenRecord),
		creds:  make(map[string]*core.ProviderCredential),
	}
}

func (s *Store) Ping(context.Context) error { return nil }

// InTx serializes write sequences against each other. The memory adapter
// has no rollback; writes apply as they happen.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, r core.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx, s)
}

func (s *Store) GetProviderCredential(_ context.Context, provider string) (*core.ProviderCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.creds[provider]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) UpsertProviderCredential(_ context.Context, c *core.ProviderCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.UpdatedAt = time.Now()
	cp := *c
	s.creds[c.Provider] = &cp
	return nil
}

func (s *Store) FindAccountLink(_ context.Context, provider, providerUserID string) (*core.AccountLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.links[linkKey{provider, providerUserID}]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = "active"
	}
	u.CreatedAt = time.Now()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) CreateAccountLink(_ context.Context, l *core.AccountLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := linkKey{l.Provider, l.ProviderUserID}
	if existing, ok := s.links[key]; ok {
		// Same upsert semantics as the unique index in Postgres.
		existing.Email = l.Email
		existing.EmailVerified = l.EmailVerified
		existing.Name = l.Name
		existing.Picture = l.Picture
		existing.UpdatedAt = time.Now()
		*l = *existing
		return nil
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	now := time.Now()
	l.CreatedAt = now
	l.UpdatedAt = now
	cp := *l
	s.links[key] = &cp
	return nil
}

func (s *Store) UpdateAccountLink(_ context.Context, l *core.AccountLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.links[linkKey{l.Provider, l.ProviderUserID}]
	if !ok || existing.ID != l.ID {
		return core.ErrNotFound
	}
	existing.Email = l.Email
	existing.EmailVerified = l.EmailVerified
	existing.Name = l.Name
	existing.Picture = l.Picture
	existing.UpdatedAt = time.Now()
	*l = *existing
	return nil
}

func (s *Store) GetAccessTokenRecord(_ context.Context, accountID string) (*core.AccessTokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[accountID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) CreateAccessTokenRecord(_ context.Context, t *core.AccessTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if existing, ok := s.tokens[t.AccountID]; ok {
		existing.AccessToken = t.AccessToken
		existing.RefreshToken = t.RefreshToken
		existing.ExpiresAt = t.ExpiresAt
		existing.UpdatedAt = now
		*t = *existing
		return nil
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	s.tokens[t.AccountID] = &cp
	return nil
}

func (s *Store) UpdateAccessTokenRecord(ctx context.Context, t *core.AccessTokenRecord) error {
	return s.CreateAccessTokenRecord(ctx, t)
}

// Counts reports table sizes; test helper.
func (s *Store) Counts() (users, links, tokens int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), len(s.links), len(s.tokens)
}
