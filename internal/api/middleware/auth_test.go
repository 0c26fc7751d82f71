package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mora-fusion/server/internal/auth"
)

func okHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func problemTitle(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Title
}

func TestTokenAuthMissingHeader(t *testing.T) {
	manager := auth.NewTokenManager("secret", time.Hour, "test")
	handler := TokenAuth(manager, "test")(okHandler(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/1", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Missing bearer token", problemTitle(t, rec.Body.Bytes()))
}

func TestTokenAuthMalformedToken(t *testing.T) {
	manager := auth.NewTokenManager("secret", time.Hour, "test")
	handler := TokenAuth(manager, "test")(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/1", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid token", problemTitle(t, rec.Body.Bytes()))
}

func TestTokenAuthExpiredToken(t *testing.T) {
	expired := auth.NewTokenManager("secret", -time.Minute, "test")
	token, err := expired.Issue(42, "user")
	require.NoError(t, err)

	manager := auth.NewTokenManager("secret", time.Hour, "test")
	handler := TokenAuth(manager, "test")(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Token expired", problemTitle(t, rec.Body.Bytes()))
}

func TestTokenAuthStoresIdentity(t *testing.T) {
	manager := auth.NewTokenManager("secret", time.Hour, "test")
	token, err := manager.Issue(42, "organizer")
	require.NoError(t, err)

	var seen auth.Identity
	handler := TokenAuth(manager, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromRequest(r)
		require.True(t, ok)
		seen = identity
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, int64(42), seen.ID)
	assert.Equal(t, "organizer", seen.Role)
}
