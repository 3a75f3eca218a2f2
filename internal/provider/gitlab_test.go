package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitLabParseTokenResponsePrefersCreatedAt(t *testing.T) {
	g := NewGitLab()

	bundle := g.ParseTokenResponse(Payload{
		"access_token":  "glpat",
		"refresh_token": "glref",
		"created_at":    float64(1000),
		"expires_in":    float64(500),
	})

	assert.Equal(t, "glpat", bundle.AccessToken)
	assert.Equal(t, "glref", bundle.RefreshToken)
	assert.Equal(t, int64(1500), bundle.ExpiresAt)
}

func TestGitLabParseTokenResponseFallsBackToNow(t *testing.T) {
	g := NewGitLab()

	before := time.Now().Unix()
	bundle := g.ParseTokenResponse(Payload{
		"access_token": "glpat",
		"expires_in":   float64(7200),
	})
	after := time.Now().Unix()

	assert.GreaterOrEqual(t, bundle.ExpiresAt, before+7200)
	assert.LessOrEqual(t, bundle.ExpiresAt, after+7200)
}

func TestGitLabParseTokenResponseNoExpiry(t *testing.T) {
	bundle := NewGitLab().ParseTokenResponse(Payload{"access_token": "glpat"})
	assert.Equal(t, int64(0), bundle.ExpiresAt)
}

func TestGitLabRefreshBody(t *testing.T) {
	t.Setenv("GITLAB_CLIENT_ID", "id")
	t.Setenv("GITLAB_CLIENT_SECRET", "secret")

	body := NewGitLab().RefreshBody("glref")

	assert.Equal(t, "refresh_token", body.Get("grant_type"))
	assert.Equal(t, "glref", body.Get("refresh_token"))
	assert.Equal(t, "id", body.Get("client_id"))
	assert.Equal(t, "secret", body.Get("client_secret"))
}

func TestGitLabRevoke(t *testing.T) {
	t.Setenv("GITLAB_CLIENT_ID", "id")
	t.Setenv("GITLAB_CLIENT_SECRET", "secret")

	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	g := NewGitLab()
	g.revokeURL = srv.URL

	err := g.Revoke(context.Background(), srv.Client(), "glpat", "glref")
	require.NoError(t, err)

	assert.Equal(t, "glpat", gotForm.Get("token"))
	assert.Equal(t, "id", gotForm.Get("client_id"))
	assert.Equal(t, "secret", gotForm.Get("client_secret"))
}
