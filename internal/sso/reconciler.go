package sso

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/ssogate/internal/email"
	"github.com/dropDatabas3/ssogate/internal/oauth"
	"github.com/dropDatabas3/ssogate/internal/observability/logger"
	"github.com/dropDatabas3/ssogate/internal/store/core"
	"github.com/google/uuid"
)

// Reconciler folds a fetched (profile, token) pair into local persistence:
// first login creates the user/link/token triple, later logins refresh the
// link's profile fields and overwrite the single token record.
type Reconciler interface {
	Reconcile(ctx context.Context, provider string, profile *oauth.Profile, tok *oauth.TokenInfo, defaults map[string]any) (*core.AccessTokenRecord, *core.AccountLink, error)
}

var ErrProfileIncomplete = errors.New("profile missing provider user id")

type reconciler struct {
	repo     core.Repository
	welcomer *email.Welcomer
	now      func() time.Time
}

func NewReconciler(repo core.Repository, welcomer *email.Welcomer) Reconciler {
	return &reconciler{repo: repo, welcomer: welcomer, now: time.Now}
}

func (r *reconciler) Reconcile(ctx context.Context, provider string, profile *oauth.Profile, tok *oauth.TokenInfo, defaults map[string]any) (*core.AccessTokenRecord, *core.AccountLink, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("sso.reconcile"), logger.Provider(provider))

	if profile == nil || profile.ProviderUserID == "" {
		return nil, nil, ErrProfileIncomplete
	}

	var (
		record  *core.AccessTokenRecord
		account *core.AccountLink
		created bool
	)

	err := r.repo.InTx(ctx, func(ctx context.Context, repo core.Repository) error {
		var expiresAt *time.Time
		if t := tok.ExpiresAt(r.now()); !t.IsZero() {
			expiresAt = &t
		}

		link, err := repo.FindAccountLink(ctx, provider, profile.ProviderUserID)
		switch {
		case errors.Is(err, core.ErrNotFound):
			// First login: user + link + token.
			u := &core.User{
				ID:          uuid.NewString(),
				Email:       profile.Email,
				Name:        profile.Name,
				Preferences: defaults,
			}
			if err := repo.CreateUser(ctx, u); err != nil {
				return fmt.Errorf("create user: %w", err)
			}

			link = &core.AccountLink{
				ID:             uuid.NewString(),
				UserID:         u.ID,
				Provider:       provider,
				ProviderUserID: profile.ProviderUserID,
				Email:          profile.Email,
				EmailVerified:  profile.EmailVerified,
				Name:           profile.Name,
				Picture:        profile.Picture,
			}
			if err := repo.CreateAccountLink(ctx, link); err != nil {
				return fmt.Errorf("create account link: %w", err)
			}
			// An upsert race hands back another login's link; only a link
			// bound to the user we just made counts as a fresh provision.
			created = link.UserID == u.ID
			account = link

			record = &core.AccessTokenRecord{
				ID:           uuid.NewString(),
				AccountID:    link.ID,
				AccessToken:  tok.AccessToken,
				RefreshToken: tok.RefreshToken,
				ExpiresAt:    expiresAt,
			}
			if err := repo.CreateAccessTokenRecord(ctx, record); err != nil {
				return fmt.Errorf("create access token record: %w", err)
			}
			return nil

		case err != nil:
			return fmt.Errorf("find account link: %w", err)
		}

		// Repeat login: refresh profile, overwrite token.
		link.Email = profile.Email
		link.EmailVerified = profile.EmailVerified
		link.Name = profile.Name
		link.Picture = profile.Picture
		if err := repo.UpdateAccountLink(ctx, link); err != nil {
			return fmt.Errorf("update account link: %w", err)
		}
		account = link

		record = &core.AccessTokenRecord{
			ID:           uuid.NewString(),
			AccountID:    link.ID,
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			ExpiresAt:    expiresAt,
		}
		if err := repo.UpdateAccessTokenRecord(ctx, record); err != nil {
			return fmt.Errorf("update access token record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if created {
		log.Info("user provisioned",
			logger.AccountID(record.AccountID),
			logger.Email(profile.Email),
		)
		r.welcomer.SendWelcome(ctx, profile.Email, profile.Name)
	} else {
		log.Debug("account refreshed", logger.AccountID(record.AccountID))
	}

	return record, account, nil
}
