package pg

import (
	"context"

	"github.com/dropDatabas3/ssogate/internal/store/core"
)

func (s *Store) GetAccessTokenRecord(ctx context.Context, accountID string) (*core.AccessTokenRecord, error) {
	const q = `
		SELECT id, account_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM sso_access_token
		WHERE account_id = $1`

	var t core.AccessTokenRecord
	err := s.q.QueryRow(ctx, q, accountID).Scan(
		&t.ID, &t.AccountID, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (s *Store) CreateAccessTokenRecord(ctx context.Context, t *core.AccessTokenRecord) error {
	const q = `
		INSERT INTO sso_access_token (id, account_id, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
		RETURNING id, created_at, updated_at`

	err := s.q.QueryRow(ctx, q, t.ID, t.AccountID, t.AccessToken, t.RefreshToken, t.ExpiresAt).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return mapErr(err)
}

// UpdateAccessTokenRecord overwrites the single token row for the link.
// Same upsert as create: latest wins, no history.
func (s *Store) UpdateAccessTokenRecord(ctx context.Context, t *core.AccessTokenRecord) error {
	return s.CreateAccessTokenRecord(ctx, t)
}
