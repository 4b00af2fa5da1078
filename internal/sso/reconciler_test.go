package sso_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/ssogate/internal/email"
	"github.com/dropDatabas3/ssogate/internal/oauth"
	"github.com/dropDatabas3/ssogate/internal/sso"
	storemem "github.com/dropDatabas3/ssogate/internal/store/memory"
)

type recordingSender struct {
	sent chan string
}

func (r *recordingSender) Send(to, subject, htmlBody, textBody string) error {
	r.sent <- to
	return nil
}

func testProfile() *oauth.Profile {
	return &oauth.Profile{
		ProviderUserID: "g-42",
		Email:          "jane@example.com",
		EmailVerified:  true,
		Name:           "Jane",
		Picture:        "https://img.example/jane.png",
	}
}

func testToken(access string) *oauth.TokenInfo {
	return &oauth.TokenInfo{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	}
}

func TestReconcile_FirstLoginProvisions(t *testing.T) {
	store := storemem.New()
	r := sso.NewReconciler(store, nil)

	record, account, err := r.Reconcile(context.Background(), "google", testProfile(), testToken("tok1"),
		map[string]any{"locale": "en"})
	require.NoError(t, err)

	require.Equal(t, "tok1", record.AccessToken)
	require.Equal(t, "refresh-tok1", record.RefreshToken)
	require.NotNil(t, record.ExpiresAt)
	require.Equal(t, account.ID, record.AccountID)
	require.NotEmpty(t, account.UserID)
	require.Equal(t, "google", account.Provider)
	require.Equal(t, "g-42", account.ProviderUserID)

	users, links, tokens := store.Counts()
	require.Equal(t, 1, users)
	require.Equal(t, 1, links)
	require.Equal(t, 1, tokens)
}

func TestReconcile_RepeatLoginUpdatesInPlace(t *testing.T) {
	store := storemem.New()
	r := sso.NewReconciler(store, nil)
	ctx := context.Background()

	first, firstAccount, err := r.Reconcile(ctx, "google", testProfile(), testToken("tok1"), nil)
	require.NoError(t, err)

	// Same provider identity comes back with fresh profile data and token.
	p := testProfile()
	p.Email = "jane.doe@example.com"
	p.Name = "Jane Doe"

	second, secondAccount, err := r.Reconcile(ctx, "google", p, testToken("tok2"), nil)
	require.NoError(t, err)

	require.Equal(t, firstAccount.ID, secondAccount.ID)
	require.Equal(t, firstAccount.UserID, secondAccount.UserID)
	require.Equal(t, "jane.doe@example.com", secondAccount.Email)
	require.Equal(t, "Jane Doe", secondAccount.Name)

	// The single token record is overwritten, never duplicated.
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "tok2", second.AccessToken)

	users, links, tokens := store.Counts()
	require.Equal(t, 1, users)
	require.Equal(t, 1, links)
	require.Equal(t, 1, tokens)
}

func TestReconcile_IncompleteProfileRejected(t *testing.T) {
	store := storemem.New()
	r := sso.NewReconciler(store, nil)

	_, _, err := r.Reconcile(context.Background(), "google", &oauth.Profile{Email: "x@example.com"}, testToken("tok1"), nil)
	require.ErrorIs(t, err, sso.ErrProfileIncomplete)

	users, links, tokens := store.Counts()
	require.Zero(t, users+links+tokens)
}

func TestReconcile_WelcomeEmailOnlyOnFirstLogin(t *testing.T) {
	store := storemem.New()
	sender := &recordingSender{sent: make(chan string, 2)}
	r := sso.NewReconciler(store, email.NewWelcomer(sender, "ssogate"))
	ctx := context.Background()

	_, _, err := r.Reconcile(ctx, "google", testProfile(), testToken("tok1"), nil)
	require.NoError(t, err)

	select {
	case to := <-sender.sent:
		require.Equal(t, "jane@example.com", to)
	case <-time.After(2 * time.Second):
		t.Fatal("expected welcome email after first login")
	}

	_, _, err = r.Reconcile(ctx, "google", testProfile(), testToken("tok2"), nil)
	require.NoError(t, err)

	select {
	case <-sender.sent:
		t.Fatal("repeat login must not send a welcome email")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestReconcile_NoExpiryWhenProviderOmitsIt(t *testing.T) {
	store := storemem.New()
	r := sso.NewReconciler(store, nil)

	tok := testToken("tok1")
	tok.ExpiresIn = 0

	record, _, err := r.Reconcile(context.Background(), "google", testProfile(), tok, nil)
	require.NoError(t, err)
	require.Nil(t, record.ExpiresAt)
}
