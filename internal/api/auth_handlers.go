package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/layarapp/layar-server/internal/domain"
	domainerrors "github.com/layarapp/layar-server/internal/errors"
	"github.com/layarapp/layar-server/internal/id"
	"github.com/layarapp/layar-server/internal/livesync"
	"github.com/layarapp/layar-server/internal/remote"
	"github.com/layarapp/layar-server/internal/service"
)

// stateCookie holds the federated sign-in nonce between redirect and callback.
const stateCookie = "layar_oauth_state"

func (s *Server) registerAuthRoutes() {
	security := []map[string][]string{{"client": {}}}
	limited := huma.Middlewares{s.authRateLimit}

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Sign in",
		Description: "Signs the client in with a username or email and password",
		Tags:        []string{"Authentication"},
		Security:    security,
		Middlewares: limited,
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/register",
		Summary:       "Register",
		Description:   "Creates an account and its profile, then signs the client in",
		Tags:          []string{"Authentication"},
		Security:      security,
		Middlewares:   limited,
		DefaultStatus: http.StatusCreated,
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/logout",
		Summary:     "Sign out",
		Tags:        []string{"Authentication"},
		Security:    security,
	}, s.handleLogout)

	huma.Register(s.api, huma.Operation{
		OperationID: "federatedStart",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/federated",
		Summary:     "Start federated sign-in",
		Description: "Returns the identity provider URL to send the browser to",
		Tags:        []string{"Authentication"},
		Security:    security,
	}, s.handleFederatedStart)

	huma.Register(s.api, huma.Operation{
		OperationID: "federatedCallback",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/federated/callback",
		Summary:     "Complete federated sign-in",
		Tags:        []string{"Authentication"},
		Security:    security,
		Middlewares: limited,
	}, s.handleFederatedCallback)
}

// === DTOs ===

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body service.LoginRequest
}

// RegisterInput wraps the registration request for Huma.
type RegisterInput struct {
	Body service.RegisterRequest
}

// AuthResponse is returned by every sign-in flow.
type AuthResponse struct {
	Account *remote.Account `json:"account" doc:"Signed-in account"`
	Landing string          `json:"landing" doc:"Route the client should navigate to"`
	Session domain.Session  `json:"session" doc:"Session as resolved by the replica"`
	Token   string          `json:"token" doc:"Refreshed client token"`
}

// AuthOutput returns an AuthResponse and refreshes the client cookie.
type AuthOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      AuthResponse
}

// SessionOutput returns the session after sign-out.
type SessionOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Session domain.Session `json:"session"`
		Token   string         `json:"token"`
	}
}

// FederatedStartInput selects the page that started the flow.
type FederatedStartInput struct {
	Mode string `query:"mode" enum:"login,register" default:"login" doc:"login or register"`
}

// FederatedStartOutput returns the provider URL and sets the state cookie.
type FederatedStartOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		URL string `json:"url" doc:"Identity provider authorization URL"`
	}
}

// FederatedCallbackInput carries the provider's redirect parameters.
type FederatedCallbackInput struct {
	State string `cookie:"layar_oauth_state"`
	Body  struct {
		Code  string `json:"code" minLength:"1" doc:"Authorization code"`
		State string `json:"state" minLength:"1" doc:"State returned by the provider"`
	}
}

// === Handlers ===

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	replica, err := replicaFrom(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Auth.Login(ctx, replica.Auth(), input.Body)
	if err != nil {
		return nil, err
	}
	return s.authOutput(ctx, replica, res)
}

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
	replica, err := replicaFrom(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.services.Auth.Register(ctx, replica.Auth(), input.Body)
	if err != nil {
		return nil, err
	}
	return s.authOutput(ctx, replica, res)
}

func (s *Server) authOutput(ctx context.Context, replica *livesync.Replica, res *service.AuthResult) (*AuthOutput, error) {
	session := s.awaitSignIn(ctx, replica, res.Account.UID)

	token, err := s.registry.Reissue(replica)
	if err != nil {
		return nil, err
	}

	return &AuthOutput{
		SetCookie: s.clientCookie(token),
		Body: AuthResponse{
			Account: res.Account,
			Landing: res.Landing,
			Session: session,
			Token:   token,
		},
	}, nil
}

func (s *Server) handleLogout(ctx context.Context, _ *struct{}) (*SessionOutput, error) {
	replica, err := replicaFrom(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Auth.Logout(ctx, replica.Auth()); err != nil {
		return nil, err
	}
	session := s.awaitSignIn(ctx, replica, "")

	token, err := s.registry.Reissue(replica)
	if err != nil {
		return nil, err
	}

	out := &SessionOutput{SetCookie: s.clientCookie(token)}
	out.Body.Session = session
	out.Body.Token = token
	return out, nil
}

func (s *Server) handleFederatedStart(ctx context.Context, input *FederatedStartInput) (*FederatedStartOutput, error) {
	if _, err := replicaFrom(ctx); err != nil {
		return nil, err
	}

	nonce, err := id.Generate("st")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to create state")
	}
	state := input.Mode + "." + nonce

	url, err := s.services.Auth.FederatedURL(state)
	if err != nil {
		return nil, err
	}

	out := &FederatedStartOutput{SetCookie: http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	}}
	out.Body.URL = url
	return out, nil
}

func (s *Server) handleFederatedCallback(ctx context.Context, input *FederatedCallbackInput) (*AuthOutput, error) {
	replica, err := replicaFrom(ctx)
	if err != nil {
		return nil, err
	}

	if input.State == "" || input.State != input.Body.State {
		return nil, domainerrors.FederatedFailed(domainerrors.New("state mismatch"))
	}

	mode := service.FederatedLogin
	if prefix, _, _ := strings.Cut(input.Body.State, "."); prefix == string(service.FederatedRegister) {
		mode = service.FederatedRegister
	}

	res, err := s.services.Auth.CompleteFederated(ctx, replica.Auth(), input.Body.Code, mode)
	if err != nil {
		return nil, err
	}
	return s.authOutput(ctx, replica, res)
}
