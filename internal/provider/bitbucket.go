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
	oauthbitbucket "golang.org/x/oauth2/bitbucket"
)

// Bitbucket implements Provider for bitbucket.org. Bitbucket authenticates
// token-endpoint calls with HTTP Basic client credentials instead of body
// fields, so the refresh body carries only the grant. That asymmetry with
// the other providers is Bitbucket's documented protocol, not an omission.
type Bitbucket struct {
	endpoint    oauth2.Endpoint
	userInfoURL string
	revokeURL   string
}

// NewBitbucket creates the Bitbucket provider descriptor.
func NewBitbucket() *Bitbucket {
	return &Bitbucket{
		endpoint:    oauthbitbucket.Endpoint,
		userInfoURL: "https://api.bitbucket.org/2.0/user",
		revokeURL:   "https://bitbucket.org/site/oauth2/revoke_token",
	}
}

func (b *Bitbucket) Name() string { return "bitbucket" }

func (b *Bitbucket) ClientID() string { return os.Getenv("BITBUCKET_CLIENT_ID") }

func (b *Bitbucket) ClientSecret() string { return os.Getenv("BITBUCKET_CLIENT_SECRET") }

func (b *Bitbucket) TokenURL() string { return b.endpoint.TokenURL }

func (b *Bitbucket) UserInfoURL() string { return b.userInfoURL }

func (b *Bitbucket) AuthorizeURL(callbackURL, state string) string {
	cfg := oauth2.Config{
		ClientID:    b.ClientID(),
		RedirectURL: callbackURL,
		Scopes:      []string{"account", "repository:admin", "pullrequest:write", "webhook"},
		Endpoint:    b.endpoint,
	}
	return cfg.AuthCodeURL(state)
}

func (b *Bitbucket) ParseTokenResponse(p Payload) TokenBundle {
	bundle := TokenBundle{
		AccessToken:  p.Str("access_token"),
		RefreshToken: p.Str("refresh_token"),
	}
	if n := p.Int("expires_in"); n > 0 {
		bundle.ExpiresAt = time.Now().Unix() + n
	}
	return bundle
}

func (b *Bitbucket) RefreshBody(refreshToken string) url.Values {
	// Credentials go in the Basic header, not the body.
	return url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
}

func (b *Bitbucket) AuthHeader() string {
	return basicAuth(b.ClientID(), b.ClientSecret())
}

// Revoke posts to the revoke endpoint with Basic auth and an access-token
// type hint.
func (b *Bitbucket) Revoke(ctx context.Context, client *http.Client, accessToken, _ string) error {
	form := url.Values{
		"token":           {accessToken},
		"token_type_hint": {"access_token"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Authorization", b.AuthHeader())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("bitbucket revoke request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bitbucket revoke failed: %d %s", resp.StatusCode, ioutil.ReadLimited(resp.Body, maxErrorBody))
	}
	return nil
}
