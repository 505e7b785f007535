package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circl-ai/circl/pkg/logger"
)

func newAuthServer(t *testing.T, handler http.HandlerFunc) (*Client, *MemoryStore) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := NewMemoryStore()
	return NewClient(srv.URL, srv.Client(), store, logger.NewNop()), store
}

func TestGoogleLoginStoresTokenPair(t *testing.T) {
	client, store := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/google/log-in", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "google-id-token", body["token"])

		fmt.Fprint(w, `{"accessToken":"at-1","refreshToken":"rt-1","user":{"user_id":"u1","email":"sarah@example.com","first_name":"Sarah","last_name":"Chen"}}`)
	})

	user, err := client.GoogleLogin(context.Background(), "google-id-token")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.UserID)
	assert.Equal(t, "sarah@example.com", user.Email)

	tokens, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "at-1", tokens.AccessToken)
	assert.Equal(t, "rt-1", tokens.RefreshToken)
	assert.True(t, client.IsAuthenticated())
}

func TestValidateWithoutTokensFails(t *testing.T) {
	client, _ := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without stored tokens")
	})

	_, err := client.Validate(context.Background())
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestValidateClearsRejectedCredentials(t *testing.T) {
	client, store := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	})
	require.NoError(t, store.Save(Tokens{AccessToken: "stale"}))

	_, err := client.Validate(context.Background())
	assert.ErrorIs(t, err, ErrAuthRequired)

	tokens, _ := store.Load()
	assert.Empty(t, tokens.AccessToken)
	assert.False(t, client.IsAuthenticated())
}

func TestRefreshRotatesTokens(t *testing.T) {
	client, store := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/refresh", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "rt-old", body["refreshToken"])

		fmt.Fprint(w, `{"accessToken":"at-new","refreshToken":"rt-new"}`)
	})
	require.NoError(t, store.Save(Tokens{AccessToken: "at-old", RefreshToken: "rt-old"}))

	access, err := client.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-new", access)

	tokens, _ := store.Load()
	assert.Equal(t, "at-new", tokens.AccessToken)
	assert.Equal(t, "rt-new", tokens.RefreshToken)
}

func TestRefreshKeepsOldRefreshTokenWhenOmitted(t *testing.T) {
	client, store := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"accessToken":"at-new"}`)
	})
	require.NoError(t, store.Save(Tokens{AccessToken: "at-old", RefreshToken: "rt-keep"}))

	_, err := client.Refresh(context.Background())
	require.NoError(t, err)

	tokens, _ := store.Load()
	assert.Equal(t, "rt-keep", tokens.RefreshToken)
}

func TestRefreshFailureClearsCredentials(t *testing.T) {
	client, store := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	require.NoError(t, store.Save(Tokens{AccessToken: "at", RefreshToken: "rt"}))

	_, err := client.Refresh(context.Background())
	require.ErrorIs(t, err, ErrAuthRequired)

	tokens, _ := store.Load()
	assert.Empty(t, tokens.AccessToken)
	assert.Empty(t, tokens.RefreshToken)
}

func TestRefreshWithoutRefreshTokenFails(t *testing.T) {
	client, store := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected without a refresh token")
	})
	require.NoError(t, store.Save(Tokens{AccessToken: "at-only"}))

	_, err := client.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrAuthRequired)
}

func TestLogoutClearsStore(t *testing.T) {
	client, store := newAuthServer(t, func(w http.ResponseWriter, r *http.Request) {})
	require.NoError(t, store.Save(Tokens{AccessToken: "at"}))

	require.NoError(t, client.Logout())
	assert.False(t, client.IsAuthenticated())
}
