package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/hanzoai/oauth-proxy/internal/ioutil"
	"golang.org/x/oauth2"
	oauthgitlab "golang.org/x/oauth2/gitlab"
)

// GitLab implements Provider for gitlab.com. GitLab reports the token's
// issuance time, so expiry prefers created_at + expires_in over the local
// clock.
type GitLab struct {
	endpoint    oauth2.Endpoint
	userInfoURL string
	revokeURL   string
}

// NewGitLab creates the GitLab provider descriptor.
func NewGitLab() *GitLab {
	return &GitLab{
		endpoint:    oauthgitlab.Endpoint,
		userInfoURL: "https://gitlab.com/api/v4/user",
		revokeURL:   "https://gitlab.com/oauth/revoke",
	}
}

func (g *GitLab) Name() string { return "gitlab" }

func (g *GitLab) ClientID() string { return os.Getenv("GITLAB_CLIENT_ID") }

func (g *GitLab) ClientSecret() string { return os.Getenv("GITLAB_CLIENT_SECRET") }

func (g *GitLab) TokenURL() string { return g.endpoint.TokenURL }

func (g *GitLab) UserInfoURL() string { return g.userInfoURL }

func (g *GitLab) AuthorizeURL(callbackURL, state string) string {
	cfg := oauth2.Config{
		ClientID:    g.ClientID(),
		RedirectURL: callbackURL,
		Scopes:      []string{"api", "read_user", "read_repository", "write_repository"},
		Endpoint:    g.endpoint,
	}
	return cfg.AuthCodeURL(state)
}

func (g *GitLab) ParseTokenResponse(p Payload) TokenBundle {
	b := TokenBundle{
		AccessToken:  p.Str("access_token"),
		RefreshToken: p.Str("refresh_token"),
	}
	created := p.Int("created_at")
	expiresIn := p.Int("expires_in")
	switch {
	case created > 0 && expiresIn > 0:
		// created_at is the absolute issuance time.
		b.ExpiresAt = created + expiresIn
	case expiresIn > 0:
		b.ExpiresAt = time.Now().Unix() + expiresIn
	}
	return b
}

func (g *GitLab) RefreshBody(refreshToken string) url.Values {
	return url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"client_id":     {g.ClientID()},
		"client_secret": {g.ClientSecret()},
	}
}

func (g *GitLab) AuthHeader() string { return "" }

// Revoke posts the token with client credentials to the dedicated revoke
// endpoint.
func (g *GitLab) Revoke(ctx context.Context, client *http.Client, accessToken, _ string) error {
	form := url.Values{
		"token":         {accessToken},
		"client_id":     {g.ClientID()},
		"client_secret": {g.ClientSecret()},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("gitlab revoke request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gitlab revoke failed: %d %s", resp.StatusCode, ioutil.ReadLimited(resp.Body, maxErrorBody))
	}
	return nil
}
