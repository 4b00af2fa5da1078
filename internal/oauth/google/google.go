// Package google implements the OAuth2 authorization-code adapter for
// Google. Endpoints come from the immutable provider config so tests can
// substitute them.
package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/ssogate/internal/oauth"
)

const (
	defaultAuthorizeURL = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL     = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL  = "https://www.googleapis.com/oauth2/v1/userinfo"
)

// Adapter is the Google provider adapter.
type Adapter struct {
	cfg  oauth.Config
	http *http.Client
}

// New builds the adapter from an immutable config, filling in Google's
// well-known endpoints when the config leaves them empty.
func New(cfg oauth.Config) *Adapter {
	if cfg.Provider == "" {
		cfg.Provider = "google"
	}
	if cfg.AuthorizeURL == "" {
		cfg.AuthorizeURL = defaultAuthorizeURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "email", "profile"}
	}
	return &Adapter{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *Adapter) Name() string { return g.cfg.Provider }

// Config returns the adapter's immutable settings.
func (g *Adapter) Config() oauth.Config { return g.cfg }

// AuthURL builds the authorization redirect; the opaque state round-trips
// unchanged.
func (g *Adapter) AuthURL(ctx context.Context, state string, creds oauth.ClientCredentials) (string, error) {
	u, err := url.Parse(g.cfg.AuthorizeURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", creds.ClientID)
	q.Set("redirect_uri", g.cfg.RedirectURL)
	q.Set("scope", strings.Join(g.cfg.Scopes, " "))
	q.Set("state", state)
	q.Set("access_type", "offline")
	q.Set("include_granted_scopes", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode posts the authorization code to the token endpoint. Non-2xx
// responses are relayed verbatim as *oauth.UpstreamError.
func (g *Adapter) ExchangeCode(ctx context.Context, code string, creds oauth.ClientCredentials) (*oauth.TokenInfo, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", creds.ClientID)
	form.Set("client_secret", creds.ClientSecret)
	form.Set("redirect_uri", g.cfg.RedirectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, &oauth.UpstreamError{
			Provider: g.cfg.Provider,
			Endpoint: "token",
			Status:   resp.StatusCode,
			Body:     body,
		}
	}

	var tok oauth.TokenInfo
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// googleProfile is Google's v1 userinfo shape (alt=json).
type googleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// FetchProfile issues a GET to the userinfo endpoint with the access token
// as a query credential.
func (g *Adapter) FetchProfile(ctx context.Context, accessToken string) (*oauth.Profile, error) {
	u, err := url.Parse(g.cfg.UserInfoURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("access_token", accessToken)
	q.Set("alt", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		return nil, &oauth.UpstreamError{
			Provider: g.cfg.Provider,
			Endpoint: "userinfo",
			Status:   resp.StatusCode,
			Body:     body,
		}
	}

	var gp googleProfile
	if err := json.Unmarshal(body, &gp); err != nil {
		return nil, err
	}
	return &oauth.Profile{
		ProviderUserID: gp.ID,
		Email:          gp.Email,
		EmailVerified:  gp.VerifiedEmail,
		Name:           gp.Name,
		Picture:        gp.Picture,
	}, nil
}
