package core

import "time"

// User is the local account record. Created on first login with the
// provider's default preferences; email and name are snapshots from the
// profile that provisioned it.
type User struct {
	ID          string
	Email       string
	Name        string
	Status      string
	Preferences map[string]any
	CreatedAt   time.Time
}

// AccountLink (sso_user_account) maps a local User to a
// (provider, provider_user_id) pair. Unique per pair; profile fields are
// refreshed on every login.
type AccountLink struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	Picture        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AccessTokenRecord is the persisted provider token for an AccountLink.
// One per link, latest wins; no history.
type AccessTokenRecord struct {
	ID           string
	AccountID    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProviderCredential stores provider-issued client credentials; the secret
// is encrypted at rest and decrypted by the credentials service.
type ProviderCredential struct {
	Provider        string
	ClientID        string
	ClientSecretEnc string
	UpdatedAt       time.Time
}
