package pg

import (
	"context"

	"github.com/dropDatabas3/ssogate/internal/store/core"
)

func (s *Store) GetProviderCredential(ctx context.Context, provider string) (*core.ProviderCredential, error) {
	const q = `
		SELECT provider, client_id, client_secret_enc, updated_at
		FROM sso_provider_credential
		WHERE provider = $1`

	var c core.ProviderCredential
	err := s.q.QueryRow(ctx, q, provider).Scan(&c.Provider, &c.ClientID, &c.ClientSecretEnc, &c.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) UpsertProviderCredential(ctx context.Context, c *core.ProviderCredential) error {
	const q = `
		INSERT INTO sso_provider_credential (provider, client_id, client_secret_enc)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			client_secret_enc = EXCLUDED.client_secret_enc,
			updated_at = now()
		RETURNING updated_at`

	err := s.q.QueryRow(ctx, q, c.Provider, c.ClientID, c.ClientSecretEnc).Scan(&c.UpdatedAt)
	return mapErr(err)
}
