package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layarapp/layar-server/internal/domain"
)

func TestRegister_SignsClientIn(t *testing.T) {
	ts := setupTestServer(t, Options{})
	token := ts.newClient(t)

	resp := ts.api.Post("/api/v1/auth/register", bearer(token), map[string]any{
		"username":        "  Alice ",
		"email":           "alice@example.com",
		"password":        "secret123",
		"confirmPassword": "secret123",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Contains(t, resp.Header().Get("Set-Cookie"), ClientCookie+"=")

	res := decode[AuthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "/home", res.Landing)
	assert.NotEmpty(t, res.Token)
	require.NotNil(t, res.Session.Principal)
	assert.Equal(t, "alice", res.Session.Principal.Username)
	assert.Equal(t, domain.RoleUser, res.Session.Principal.Role)

	// The refreshed token resolves to the same signed-in replica.
	resp = ts.api.Get("/api/v1/view", bearer(res.Token))
	require.Equal(t, http.StatusOK, resp.Code)
	view := decode[domain.ViewState](t, resp.Body.Bytes())
	require.NotNil(t, view.Session.Principal)
	assert.Equal(t, res.Account.UID, view.Session.Principal.ID)
}

func TestRegister_Errors(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.signUp(t, "bob", "bob@example.com")

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantCode   string
	}{
		{
			name: "password mismatch",
			body: map[string]any{
				"username": "carol", "email": "carol@example.com",
				"password": "secret123", "confirmPassword": "secret124",
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION",
		},
		{
			name: "username taken",
			body: map[string]any{
				"username": "BOB", "email": "other@example.com",
				"password": "secret123", "confirmPassword": "secret123",
			},
			wantStatus: http.StatusConflict,
			wantCode:   "USERNAME_TAKEN",
		},
		{
			name: "email in use",
			body: map[string]any{
				"username": "robert", "email": "bob@example.com",
				"password": "secret123", "confirmPassword": "secret123",
			},
			wantStatus: http.StatusConflict,
			wantCode:   "EMAIL_IN_USE",
		},
		{
			name: "missing email",
			body: map[string]any{
				"username": "dave", "password": "secret123", "confirmPassword": "secret123",
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "VALIDATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := ts.newClient(t)
			resp := ts.api.Post("/api/v1/auth/register", bearer(token), tt.body)
			assert.Equal(t, tt.wantStatus, resp.Code, resp.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, resp.Body.Bytes()).Code)
		})
	}
}

func TestLogin_ByUsernameAndEmail(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.signUp(t, "erin", "erin@example.com")

	for _, identifier := range []string{"Erin", "erin@example.com"} {
		token := ts.newClient(t)
		resp := ts.api.Post("/api/v1/auth/login", bearer(token), map[string]any{
			"identifier": identifier,
			"password":   "secret123",
		})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		res := decode[AuthResponse](t, resp.Body.Bytes())
		assert.Equal(t, "/home", res.Landing)
		require.NotNil(t, res.Session.Principal, identifier)
		assert.Equal(t, "erin", res.Session.Principal.Username)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.signUp(t, "frank", "frank@example.com")
	token := ts.newClient(t)

	for _, body := range []map[string]any{
		{"identifier": "frank", "password": "wrong-password"},
		{"identifier": "nobody", "password": "secret123"},
	} {
		resp := ts.api.Post("/api/v1/auth/login", bearer(token), body)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, resp.Body.Bytes()).Code)
	}
}

func TestLogout_ClearsSession(t *testing.T) {
	ts := setupTestServer(t, Options{})
	token := ts.signUp(t, "gina", "gina@example.com")

	resp := ts.api.Post("/api/v1/auth/logout", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/view", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)
	view := decode[domain.ViewState](t, resp.Body.Bytes())
	assert.Nil(t, view.Session.Principal)
	assert.Empty(t, view.FavoriteIDs)
}

func TestFederated_Disabled(t *testing.T) {
	ts := setupTestServer(t, Options{})
	token := ts.newClient(t)

	resp := ts.api.Get("/api/v1/auth/federated?mode=register", bearer(token))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "FEDERATED_FAILED", decodeError(t, resp.Body.Bytes()).Code)
}

func TestFederatedCallback_StateMismatch(t *testing.T) {
	ts := setupTestServer(t, Options{})
	token := ts.newClient(t)

	resp := ts.api.Post("/api/v1/auth/federated/callback", bearer(token),
		"Cookie: "+stateCookie+"=login.abc",
		map[string]any{"code": "code-1", "state": "login.xyz"})
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "FEDERATED_FAILED", decodeError(t, resp.Body.Bytes()).Code)
}

func TestAuthRateLimit(t *testing.T) {
	ts := setupTestServer(t, Options{AuthRateLimit: 2})
	token := ts.newClient(t)

	body := map[string]any{"identifier": "nobody", "password": "secret123"}
	for range 2 {
		resp := ts.api.Post("/api/v1/auth/login", bearer(token), body)
		require.Equal(t, http.StatusUnauthorized, resp.Code)
	}

	resp := ts.api.Post("/api/v1/auth/login", bearer(token), body)
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, resp.Body.Bytes()).Code)
}

func TestClientIP(t *testing.T) {
	assert.Equal(t, "10.0.0.1", clientIP("10.0.0.1, 10.0.0.2", "", "192.0.2.1:1234"))
	assert.Equal(t, "10.0.0.3", clientIP("", "10.0.0.3", "192.0.2.1:1234"))
	assert.Equal(t, "192.0.2.1", clientIP("", "", "192.0.2.1:1234"))
	assert.Equal(t, "pipe", clientIP("", "", "pipe"))
}
