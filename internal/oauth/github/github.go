// Package github implements the OAuth2 adapter for GitHub. Unlike Google,
// GitHub has no OIDC userinfo endpoint; the profile comes from its REST API
// with the access token as a bearer credential, and the primary email may
// need a second call when the profile hides it.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/ssogate/internal/oauth"
)

const (
	defaultAuthorizeURL = "https://github.com/login/oauth/authorize"
	defaultTokenURL     = "https://github.com/login/oauth/access_token"
	defaultUserInfoURL  = "https://api.github.com/user"
)

// Adapter is the GitHub provider adapter.
type Adapter struct {
	cfg  oauth.Config
	http *http.Client
}

func New(cfg oauth.Config) *Adapter {
	if cfg.Provider == "" {
		cfg.Provider = "github"
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
		cfg.Scopes = []string{"user:email", "read:user"}
	}
	return &Adapter{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *Adapter) Name() string { return g.cfg.Provider }

func (g *Adapter) Config() oauth.Config { return g.cfg }

func (g *Adapter) AuthURL(ctx context.Context, state string, creds oauth.ClientCredentials) (string, error) {
	u, err := url.Parse(g.cfg.AuthorizeURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", creds.ClientID)
	q.Set("redirect_uri", g.cfg.RedirectURL)
	q.Set("scope", strings.Join(g.cfg.Scopes, " "))
	q.Set("state", state)
	q.Set("allow_signup", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

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
	if tok.AccessToken == "" {
		// GitHub answers 200 with an error payload for bad codes.
		return nil, &oauth.UpstreamError{
			Provider: g.cfg.Provider,
			Endpoint: "token",
			Status:   http.StatusBadRequest,
			Body:     body,
		}
	}
	return &tok, nil
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (g *Adapter) FetchProfile(ctx context.Context, accessToken string) (*oauth.Profile, error) {
	body, err := g.get(ctx, g.cfg.UserInfoURL, accessToken)
	if err != nil {
		return nil, err
	}

	var gu githubUser
	if err := json.Unmarshal(body, &gu); err != nil {
		return nil, err
	}

	p := &oauth.Profile{
		ProviderUserID: strconv.FormatInt(gu.ID, 10),
		Email:          gu.Email,
		Name:           gu.Name,
		Picture:        gu.AvatarURL,
	}
	if p.Name == "" {
		p.Name = gu.Login
	}

	// Profile email can be private; fall back to the emails endpoint.
	if p.Email == "" {
		if email, verified, err := g.primaryEmail(ctx, accessToken); err == nil {
			p.Email = email
			p.EmailVerified = verified
		}
	}
	return p, nil
}

func (g *Adapter) primaryEmail(ctx context.Context, accessToken string) (string, bool, error) {
	body, err := g.get(ctx, strings.TrimRight(g.cfg.UserInfoURL, "/")+"/emails", accessToken)
	if err != nil {
		return "", false, err
	}
	var emails []githubEmail
	if err := json.Unmarshal(body, &emails); err != nil {
		return "", false, err
	}
	for _, e := range emails {
		if e.Primary {
			return e.Email, e.Verified, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, emails[0].Verified, nil
	}
	return "", false, fmt.Errorf("no email on github account")
}

func (g *Adapter) get(ctx context.Context, rawURL, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")

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
	return body, nil
}
