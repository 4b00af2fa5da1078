package core

import "context"

// Repository is the persistence contract for the login flow. The pg
// adapter backs it with Postgres; the memory adapter backs dev mode and
// tests.
type Repository interface {
	Ping(ctx context.Context) error

	// InTx runs fn against a repository whose writes commit together.
	// The reconcile write sequence runs inside it so racing callbacks for
	// the same provider user never persist partial state.
	InTx(ctx context.Context, fn func(ctx context.Context, r Repository) error) error

	// Credentials
	GetProviderCredential(ctx context.Context, provider string) (*ProviderCredential, error)
	UpsertProviderCredential(ctx context.Context, c *ProviderCredential) error

	// Accounts
	FindAccountLink(ctx context.Context, provider, providerUserID string) (*AccountLink, error)
	CreateUser(ctx context.Context, u *User) error
	CreateAccountLink(ctx context.Context, l *AccountLink) error
	UpdateAccountLink(ctx context.Context, l *AccountLink) error

	// Tokens
	GetAccessTokenRecord(ctx context.Context, accountID string) (*AccessTokenRecord, error)
	CreateAccessTokenRecord(ctx context.Context, t *AccessTokenRecord) error
	UpdateAccessTokenRecord(ctx context.Context, t *AccessTokenRecord) error
}
