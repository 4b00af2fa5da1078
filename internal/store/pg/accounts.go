package pg

import (
	"context"

	"github.com/dropDatabas3/ssogate/internal/store/core"
)

func (s *Store) FindAccountLink(ctx context.Context, provider, providerUserID string) (*core.AccountLink, error) {
	const q = `
		SELECT id, user_id, provider, provider_user_id, email, email_verified,
		       name, picture, created_at, updated_at
		FROM sso_user_account
		WHERE provider = $1 AND provider_user_id = $2`

	var l core.AccountLink
	err := s.q.QueryRow(ctx, q, provider, providerUserID).Scan(
		&l.ID, &l.UserID, &l.Provider, &l.ProviderUserID, &l.Email, &l.EmailVerified,
		&l.Name, &l.Picture, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &l, nil
}

func (s *Store) CreateUser(ctx context.Context, u *core.User) error {
	const q = `
		INSERT INTO app_user (id, email, name, status, preferences)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	if u.Status == "" {
		u.Status = "active"
	}
	if u.Preferences == nil {
		u.Preferences = map[string]any{}
	}
	err := s.q.QueryRow(ctx, q, u.ID, u.Email, u.Name, u.Status, u.Preferences).Scan(&u.CreatedAt)
	return mapErr(err)
}

// CreateAccountLink inserts the link; the unique index on
// (provider, provider_user_id) plus ON CONFLICT keeps racing callbacks for
// the same provider user from producing two links.
func (s *Store) CreateAccountLink(ctx context.Context, l *core.AccountLink) error {
	const q = `
		INSERT INTO sso_user_account (id, user_id, provider, provider_user_id,
		                              email, email_verified, name, picture)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (provider, provider_user_id) DO UPDATE SET
			email = EXCLUDED.email,
			email_verified = EXCLUDED.email_verified,
			name = EXCLUDED.name,
			picture = EXCLUDED.picture,
			updated_at = now()
		RETURNING id, user_id, created_at, updated_at`

	err := s.q.QueryRow(ctx, q,
		l.ID, l.UserID, l.Provider, l.ProviderUserID,
		l.Email, l.EmailVerified, l.Name, l.Picture,
	).Scan(&l.ID, &l.UserID, &l.CreatedAt, &l.UpdatedAt)
	return mapErr(err)
}

func (s *Store) UpdateAccountLink(ctx context.Context, l *core.AccountLink) error {
	const q = `
		UPDATE sso_user_account
		SET email = $2, email_verified = $3, name = $4, picture = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := s.q.QueryRow(ctx, q, l.ID, l.Email, l.EmailVerified, l.Name, l.Picture).Scan(&l.UpdatedAt)
	return mapErr(err)
}
