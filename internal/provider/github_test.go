package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitHubParseTokenResponse(t *testing.T) {
	g := NewGitHub()

	// Default GitHub tokens do not expire
	bundle := g.ParseTokenResponse(Payload{"access_token": "gho_abc"})
	assert.Equal(t, "gho_abc", bundle.AccessToken)
	assert.Equal(t, "", bundle.RefreshToken)
	assert.Equal(t, int64(0), bundle.ExpiresAt)

	// Expiring tokens are relative to now
	before := time.Now().Unix()
	bundle = g.ParseTokenResponse(Payload{
		"access_token":  "gho_abc",
		"refresh_token": "ghr_def",
		"expires_in":    float64(3600),
	})
	after := time.Now().Unix()
	assert.Equal(t, "ghr_def", bundle.RefreshToken)
	assert.GreaterOrEqual(t, bundle.ExpiresAt, before+3600)
	assert.LessOrEqual(t, bundle.ExpiresAt, after+3600)
}

func TestGitHubRefreshBody(t *testing.T) {
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")

	body := NewGitHub().RefreshBody("ghr_def")

	assert.Equal(t, "refresh_token", body.Get("grant_type"))
	assert.Equal(t, "ghr_def", body.Get("refresh_token"))
	assert.Equal(t, "id", body.Get("client_id"))
	assert.Equal(t, "secret", body.Get("client_secret"))
}

func TestGitHubAuthHeader(t *testing.T) {
	assert.Equal(t, "", NewGitHub().AuthHeader())
}

func TestGitHubRevoke(t *testing.T) {
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")

	var gotMethod, gotPath, gotAuth, gotAccept string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	g := NewGitHub()
	g.revokeURL = srv.URL + "/applications/%s/token"

	err := g.Revoke(context.Background(), srv.Client(), "gho_abc", "")
	require.NoError(t, err)

	wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("id:secret"))
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/applications/id/token", gotPath)
	assert.Equal(t, wantAuth, gotAuth)
	assert.Equal(t, "application/vnd.github+json", gotAccept)
	assert.Equal(t, "gho_abc", gotBody["access_token"])
}

func TestGitHubRevokeUpstreamFailure(t *testing.T) {
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer srv.Close()

	g := NewGitHub()
	g.revokeURL = srv.URL + "/applications/%s/token"

	err := g.Revoke(context.Background(), srv.Client(), "gho_abc", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Contains(t, err.Error(), "Bad credentials")
}
