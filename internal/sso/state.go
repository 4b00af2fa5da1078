package sso

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// StateClaims is what a generated state carries through the provider
// round-trip. Caller-supplied opaque states never take this shape and are
// passed through untouched.
type StateClaims struct {
	Provider    string `json:"prv"`
	RedirectURI string `json:"ruri,omitempty"`
	Nonce       string `json:"nonce"`
	jwtv5.RegisteredClaims
}

// Signer signs and parses generated state values (HS256).
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret []byte, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Signer{secret: secret, ttl: ttl}
}

func (s *Signer) SignState(c StateClaims) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("state signing secret not configured")
	}
	now := time.Now()
	c.IssuedAt = jwtv5.NewNumericDate(now)
	c.ExpiresAt = jwtv5.NewNumericDate(now.Add(s.ttl))
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, c)
	return tok.SignedString(s.secret)
}

// ParseState returns the claims of a state this signer produced. Opaque
// caller states fail here, which only means there is no redirect_uri to
// recover; it is never a login error.
func (s *Signer) ParseState(state string) (*StateClaims, error) {
	if len(s.secret) == 0 {
		return nil, errors.New("state signing secret not configured")
	}
	var claims StateClaims
	tok, err := jwtv5.ParseWithClaims(state, &claims, func(t *jwtv5.Token) (any, error) {
		if _, ok := t.Method.(*jwtv5.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwtv5.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid state token")
	}
	return &claims, nil
}

// generateNonce returns n random bytes, base64url-encoded.
func generateNonce(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
