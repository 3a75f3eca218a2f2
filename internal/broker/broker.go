package broker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hanzoai/oauth-proxy/internal/crypto"
	"github.com/hanzoai/oauth-proxy/internal/log"
	"github.com/hanzoai/oauth-proxy/internal/provider"
	"github.com/hanzoai/oauth-proxy/internal/statestore"
)

var (
	// ErrNotConfigured is returned when a provider has no resolvable client
	// id. Fatal to the request, not the process.
	ErrNotConfigured = errors.New("provider not configured")

	// ErrMissingRedirect is returned when initiate is called without a
	// return-redirect URL.
	ErrMissingRedirect = errors.New("redirect query parameter is required")
)

// Broker orchestrates the initiate, callback, refresh, and revoke flows
// against the provider registry and the pending-authorization store. Tokens
// only transit through it; nothing is persisted.
type Broker struct {
	store        statestore.Store
	callbackBase string
	httpClient   *http.Client
}

// New creates a broker. Every upstream call is bounded by timeout.
func New(store statestore.Store, callbackBase string, timeout time.Duration) *Broker {
	return &Broker{
		store:        store,
		callbackBase: strings.TrimRight(callbackBase, "/"),
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// callbackURL derives the deterministic callback target for a provider.
// The same URL must be presented at initiate and exchange time, since the
// OAuth exchange binds redirect_uri.
func (b *Broker) callbackURL(name string) string {
	return fmt.Sprintf("%s/%s/callback", b.callbackBase, name)
}

// Initiate begins an authorization-code flow: it records a pending
// authorization under a fresh state token and returns the provider
// authorize URL to redirect the browser to.
func (b *Broker) Initiate(p provider.Provider, redirect string) (string, error) {
	if p.ClientID() == "" {
		return "", ErrNotConfigured
	}
	if redirect == "" {
		return "", ErrMissingRedirect
	}

	state, err := crypto.GenerateState()
	if err != nil {
		return "", fmt.Errorf("failed to generate state token: %w", err)
	}
	b.store.Put(state, statestore.Entry{
		Redirect: redirect,
		Provider: p.Name(),
	})

	log.LogDebugWithFields("broker", "Initiated authorization flow", map[string]any{
		"provider": p.Name(),
	})

	return p.AuthorizeURL(b.callbackURL(p.Name()), state), nil
}

// Callback consumes the state token, exchanges the authorization code for
// tokens, and returns the caller's stored redirect URL with the token
// bundle appended as query parameters.
func (b *Broker) Callback(ctx context.Context, p provider.Provider, code, state string) (string, error) {
	entry, err := b.store.TakeIfValid(state, p.Name())
	if err != nil {
		return "", err
	}

	bundle, err := b.exchangeCode(ctx, p, code)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(entry.Redirect)
	if err != nil {
		return "", fmt.Errorf("stored redirect is not a valid URL: %w", err)
	}
	q := u.Query()
	q.Set("access_token", bundle.AccessToken)
	q.Set("refresh_token", bundle.RefreshToken)
	q.Set("expires_at", strconv.FormatInt(bundle.ExpiresAt, 10))
	q.Set("provider", p.Name())
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Refresh exchanges a refresh token for a fresh bundle. The body shape and
// auth scheme are provider-specific.
func (b *Broker) Refresh(ctx context.Context, p provider.Provider, refreshToken string) (provider.TokenBundle, error) {
	return b.tokenRequest(ctx, p, "token refresh", p.RefreshBody(refreshToken))
}

// Revoke delegates to the provider's revoke protocol. Revocation is not
// guaranteed idempotent across providers; a second revoke may itself fail.
func (b *Broker) Revoke(ctx context.Context, p provider.Provider, accessToken, refreshToken string) error {
	if err := p.Revoke(ctx, b.httpClient, accessToken, refreshToken); err != nil {
		return &UpstreamError{Provider: p.Name(), Op: "token revocation", Detail: err.Error()}
	}
	return nil
}
