package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/hanzoai/oauth-proxy/internal/ioutil"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"
)

// GitHub implements Provider for github.com. GitHub does not issue refresh
// tokens or expiring access tokens unless the app opts in, and revocation
// goes through the client-scoped applications API with Basic auth.
type GitHub struct {
	endpoint    oauth2.Endpoint
	userInfoURL string
	revokeURL   string // printf pattern taking the client id; overridable for tests
}

// NewGitHub creates the GitHub provider descriptor.
func NewGitHub() *GitHub {
	return &GitHub{
		endpoint:    oauthgithub.Endpoint,
		userInfoURL: "https://api.github.com/user",
		revokeURL:   "https://api.github.com/applications/%s/token",
	}
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) ClientID() string { return os.Getenv("GITHUB_CLIENT_ID") }

func (g *GitHub) ClientSecret() string { return os.Getenv("GITHUB_CLIENT_SECRET") }

func (g *GitHub) TokenURL() string { return g.endpoint.TokenURL }

func (g *GitHub) UserInfoURL() string { return g.userInfoURL }

func (g *GitHub) AuthorizeURL(callbackURL, state string) string {
	cfg := oauth2.Config{
		ClientID:    g.ClientID(),
		RedirectURL: callbackURL,
		// GitHub takes its scope list comma-separated in a single value.
		Scopes:   []string{"repo,user:email,admin:repo_hook"},
		Endpoint: g.endpoint,
	}
	return cfg.AuthCodeURL(state)
}

func (g *GitHub) ParseTokenResponse(p Payload) TokenBundle {
	b := TokenBundle{
		AccessToken:  p.Str("access_token"),
		RefreshToken: p.Str("refresh_token"),
	}
	if n := p.Int("expires_in"); n > 0 {
		b.ExpiresAt = time.Now().Unix() + n
	}
	return b
}

func (g *GitHub) RefreshBody(refreshToken string) url.Values {
	return url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {g.ClientID()},
		"client_secret": {g.ClientSecret()},
	}
}

func (g *GitHub) AuthHeader() string { return "" }

// Revoke deletes the grant via the applications API. GitHub answers 204 on
// success.
func (g *GitHub) Revoke(ctx context.Context, client *http.Client, accessToken, _ string) error {
	body, err := json.Marshal(map[string]string{"access_token": accessToken})
	if err != nil {
		return fmt.Errorf("failed to encode revoke body: %w", err)
	}

	revokeURL := fmt.Sprintf(g.revokeURL, url.PathEscape(g.ClientID()))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, revokeURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Authorization", basicAuth(g.ClientID(), g.ClientSecret()))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github revoke request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if (resp.StatusCode < 200 || resp.StatusCode >= 300) && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("github revoke failed: %d %s", resp.StatusCode, ioutil.ReadLimited(resp.Body, maxErrorBody))
	}
	return nil
}
