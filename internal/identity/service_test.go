package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolhub/membership/internal/auth"
	"github.com/schoolhub/membership/internal/config"
	"github.com/schoolhub/membership/internal/permission"
	"github.com/schoolhub/membership/internal/store/memstore"
)

func fakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["code"] == "bad" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "at-" + body["code"], "token_type": "Bearer"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		code := r.Header.Get("Authorization")[len("Bearer at-"):]
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"user": map[string]interface{}{
				"_id":        "ext-" + code,
				"username":   code,
				"first_name": "First " + code,
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newService(t *testing.T) (*Service, *auth.TokenService) {
	t.Helper()
	srv := fakeProvider(t)
	provider := NewOAuthClient(config.OAuthConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
	})
	tokens := auth.NewTokenService("test-secret", time.Hour, "schoolhub")
	return NewService(memstore.Open().Store().Users, provider, tokens), tokens
}

func TestLogin_FirstUserIsSuperAdmin(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newService(t)

	first, err := svc.Login(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, permission.SystemSuperAdmin, first.User.SystemRole)
	assert.Equal(t, "ext-alice", first.User.ExternalID)
	assert.Equal(t, "First alice", *first.User.FirstName)

	cred, err := tokens.Verify(first.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, cred.Subject)
	assert.Equal(t, permission.SystemSuperAdmin, cred.SystemRole)

	second, err := svc.Login(ctx, "bob", "")
	require.NoError(t, err)
	assert.Equal(t, permission.SystemUser, second.User.SystemRole)

	again, err := svc.Login(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, again.User.ID, "accounts map 1:1 to local users")
}

func TestLogin_ProviderRejects(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Login(context.Background(), "bad", "")
	assert.ErrorIs(t, err, ErrProviderRejected)
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	s, err := svc.Login(ctx, "alice", "")
	require.NoError(t, err)

	u, err := svc.Me(ctx, &auth.Identity{UserID: s.User.ID})
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	_, err = svc.Me(ctx, nil)
	assert.ErrorIs(t, err, auth.ErrAuthenticationRequired)

	_, err = svc.Me(ctx, &auth.Identity{UserID: "ghost"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
