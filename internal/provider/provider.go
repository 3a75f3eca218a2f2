package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

// maxErrorBody caps how much of an upstream error body is carried into
// error messages.
const maxErrorBody = 4 << 10

// TokenBundle is the normalized result of a token-endpoint call, regardless
// of provider. ExpiresAt is epoch seconds; 0 means the token does not
// expire or the provider did not say.
type TokenBundle struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// Payload is a token-endpoint response body normalized from either a JSON
// or a form-encoded shape.
type Payload map[string]any

// Str returns the value under key as a string, or "" when absent or not a
// string.
func (p Payload) Str(key string) string {
	v, _ := p[key].(string)
	return v
}

// Int returns the value under key as an integer. Token endpoints are
// inconsistent here: JSON bodies carry numbers, form-encoded bodies carry
// digit strings.
func (p Payload) Int(key string) int64 {
	switch v := p[key].(type) {
	case float64:
		return int64(v)
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}

// Provider captures one upstream provider's OAuth protocol: endpoints,
// scopes, credential lookup, and the quirks of its token, refresh, and
// revocation exchanges. Client credentials are resolved from the
// environment on every call, so late-injected secrets take effect without
// a restart.
type Provider interface {
	// Name returns the provider's registry key.
	Name() string

	// ClientID resolves the OAuth client id, or "" when unconfigured.
	ClientID() string

	// ClientSecret resolves the OAuth client secret.
	ClientSecret() string

	// AuthorizeURL builds the full provider authorize URL for a flow.
	AuthorizeURL(callbackURL, state string) string

	// TokenURL returns the token endpoint used for exchange and refresh.
	TokenURL() string

	// UserInfoURL returns the provider's user endpoint. Not called by the
	// broker, but part of the provider contract for downstream consumers.
	UserInfoURL() string

	// ParseTokenResponse maps a normalized token-endpoint payload to a
	// TokenBundle. Expiry semantics differ per provider.
	ParseTokenResponse(p Payload) TokenBundle

	// RefreshBody builds the form body for a refresh_token grant.
	RefreshBody(refreshToken string) url.Values

	// AuthHeader returns an Authorization header value for token-endpoint
	// requests, or "" when credentials travel in the request body.
	AuthHeader() string

	// Revoke invalidates tokens using the provider's own revoke protocol.
	Revoke(ctx context.Context, client *http.Client, accessToken, refreshToken string) error
}

var registry = map[string]Provider{
	"github":    NewGitHub(),
	"gitlab":    NewGitLab(),
	"bitbucket": NewBitbucket(),
}

// Lookup returns the provider registered under name.
func Lookup(name string) (Provider, bool) {
	p, ok := registry[name]
	return p, ok
}

// Names returns the registered provider names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// basicAuth builds an HTTP Basic Authorization value from client
// credentials.
func basicAuth(clientID, clientSecret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"+clientSecret))
}
