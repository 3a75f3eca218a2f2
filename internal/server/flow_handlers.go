package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hanzoai/oauth-proxy/internal/broker"
	jsonwriter "github.com/hanzoai/oauth-proxy/internal/json"
	"github.com/hanzoai/oauth-proxy/internal/log"
	"github.com/hanzoai/oauth-proxy/internal/provider"
	"github.com/hanzoai/oauth-proxy/internal/statestore"
)

// FlowHandlers exposes the broker's flow operations over HTTP.
type FlowHandlers struct {
	broker *broker.Broker
	lookup func(name string) (provider.Provider, bool)
}

// NewFlowHandlers creates flow handlers backed by the static provider
// registry.
func NewFlowHandlers(b *broker.Broker) *FlowHandlers {
	return &FlowHandlers{
		broker: b,
		lookup: provider.Lookup,
	}
}

// InitiateHandler starts an authorization-code flow and redirects the
// browser to the provider's authorize URL.
func (h *FlowHandlers) InitiateHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("provider")
	p, ok := h.lookup(name)
	if !ok {
		jsonwriter.WriteNotFound(w, fmt.Sprintf("unknown provider: %s", name))
		return
	}

	authURL, err := h.broker.Initiate(p, r.URL.Query().Get("redirect"))
	if err != nil {
		switch {
		case errors.Is(err, broker.ErrNotConfigured):
			jsonwriter.WriteInternalServerError(w, fmt.Sprintf("%s not configured", name))
		case errors.Is(err, broker.ErrMissingRedirect):
			jsonwriter.WriteBadRequest(w, "redirect query parameter is required")
		default:
			log.LogErrorWithFields("flow", "Failed to initiate authorization flow", map[string]any{
				"provider": name,
				"error":    err.Error(),
			})
			jsonwriter.WriteInternalServerError(w, "failed to initiate authorization flow")
		}
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// CallbackHandler validates the provider callback, exchanges the code for
// tokens, and redirects back to the caller with the token bundle in query
// parameters.
func (h *FlowHandlers) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("provider")
	p, ok := h.lookup(name)
	if !ok {
		jsonwriter.WriteNotFound(w, fmt.Sprintf("unknown provider: %s", name))
		return
	}

	q := r.URL.Query()

	// An upstream-reported denial short-circuits before any state lookup.
	if errCode := q.Get("error"); errCode != "" {
		log.LogWarnWithFields("flow", "OAuth error reported by provider", map[string]any{
			"provider": name,
			"error":    errCode,
		})
		jsonwriter.WriteBadRequest(w, fmt.Sprintf("OAuth error from %s: %s", name, errCode))
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		jsonwriter.WriteBadRequest(w, "missing code or state parameter")
		return
	}

	redirectURL, err := h.broker.Callback(r.Context(), p, code, state)
	if err != nil {
		switch {
		case errors.Is(err, statestore.ErrInvalidState), errors.Is(err, statestore.ErrProviderMismatch):
			jsonwriter.WriteBadRequest(w, err.Error())
		default:
			log.LogErrorWithFields("flow", "Token exchange failed", map[string]any{
				"provider": name,
				"error":    err.Error(),
			})
			jsonwriter.WriteBadGateway(w, "token exchange failed", err.Error())
		}
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshHandler exchanges a refresh token for a fresh token bundle. This
// is an API-style operation: the bundle comes back as JSON, not a redirect.
func (h *FlowHandlers) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("provider")
	p, ok := h.lookup(name)
	if !ok {
		jsonwriter.WriteNotFound(w, fmt.Sprintf("unknown provider: %s", name))
		return
	}

	var body refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonwriter.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if body.RefreshToken == "" {
		jsonwriter.WriteBadRequest(w, "refreshToken is required")
		return
	}

	bundle, err := h.broker.Refresh(r.Context(), p, body.RefreshToken)
	if err != nil {
		log.LogErrorWithFields("flow", "Token refresh failed", map[string]any{
			"provider": name,
			"error":    err.Error(),
		})
		jsonwriter.WriteBadGateway(w, "token refresh failed", err.Error())
		return
	}

	_ = jsonwriter.Write(w, bundle)
}

type revokeRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RevokeHandler invalidates tokens through the provider's revoke protocol.
func (h *FlowHandlers) RevokeHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("provider")
	p, ok := h.lookup(name)
	if !ok {
		jsonwriter.WriteNotFound(w, fmt.Sprintf("unknown provider: %s", name))
		return
	}

	var body revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonwriter.WriteBadRequest(w, "invalid JSON body")
		return
	}
	if body.AccessToken == "" {
		jsonwriter.WriteBadRequest(w, "accessToken is required")
		return
	}

	if err := h.broker.Revoke(r.Context(), p, body.AccessToken, body.RefreshToken); err != nil {
		log.LogErrorWithFields("flow", "Token revocation failed", map[string]any{
			"provider": name,
			"error":    err.Error(),
		})
		jsonwriter.WriteBadGateway(w, "token revocation failed", err.Error())
		return
	}

	_ = jsonwriter.Write(w, map[string]string{"status": "revoked"})
}
