package sso_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/ssogate/internal/sso"
)

func TestSigner_RoundTrip(t *testing.T) {
	signer := sso.NewSigner([]byte("test-secret"), time.Minute)

	state, err := signer.SignState(sso.StateClaims{
		Provider:    "google",
		RedirectURI: "https://app.example/done",
		Nonce:       "n1",
	})
	require.NoError(t, err)

	claims, err := signer.ParseState(state)
	require.NoError(t, err)
	require.Equal(t, "google", claims.Provider)
	require.Equal(t, "https://app.example/done", claims.RedirectURI)
	require.Equal(t, "n1", claims.Nonce)
}

func TestSigner_WrongSecretRejected(t *testing.T) {
	signer := sso.NewSigner([]byte("test-secret"), time.Minute)
	other := sso.NewSigner([]byte("other-secret"), time.Minute)

	state, err := signer.SignState(sso.StateClaims{Provider: "google", Nonce: "n1"})
	require.NoError(t, err)

	_, err = other.ParseState(state)
	require.Error(t, err)
}

func TestSigner_ExpiredStateRejected(t *testing.T) {
	signer := sso.NewSigner([]byte("test-secret"), time.Millisecond)

	state, err := signer.SignState(sso.StateClaims{Provider: "google", Nonce: "n1"})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = signer.ParseState(state)
	require.Error(t, err)
}

func TestSigner_OpaqueStateFailsParse(t *testing.T) {
	signer := sso.NewSigner([]byte("test-secret"), time.Minute)

	_, err := signer.ParseState("caller-opaque-state")
	require.Error(t, err)
}
