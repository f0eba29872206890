package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/layarapp/layar-server/internal/domain"
)

func (s *Server) registerClientRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createClient",
		Method:        http.MethodPost,
		Path:          "/api/v1/clients",
		Summary:       "Create client",
		Description:   "Starts a live replica for a new browser client and returns its client token",
		Tags:          []string{"Clients"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateClient)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteClient",
		Method:      http.MethodDelete,
		Path:        "/api/v1/clients/current",
		Summary:     "Close client",
		Description: "Tears down the calling client's replica",
		Tags:        []string{"Clients"},
		Security:    []map[string][]string{{"client": {}}},
	}, s.handleDeleteClient)
}

// ClientResponse describes a newly created client.
type ClientResponse struct {
	ClientID  string           `json:"clientId" doc:"Client identifier"`
	Token     string           `json:"token" doc:"Client token (also set as cookie)"`
	ExpiresAt time.Time        `json:"expiresAt" doc:"Token expiry"`
	View      domain.ViewState `json:"view" doc:"Initial view state"`
}

// ClientOutput returns the client and sets its cookie.
type ClientOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      ClientResponse
}

// CreateClientInput carries the project API key, required when one is configured.
type CreateClientInput struct {
	APIKey string `header:"X-Api-Key" doc:"Project API key"`
}

func (s *Server) handleCreateClient(ctx context.Context, input *CreateClientInput) (*ClientOutput, error) {
	if s.opts.APIKey != "" && subtle.ConstantTimeCompare([]byte(input.APIKey), []byte(s.opts.APIKey)) != 1 {
		return nil, huma.Error401Unauthorized("Invalid API key")
	}

	replica, token, err := s.registry.Create(ctx)
	if err != nil {
		return nil, err
	}

	return &ClientOutput{
		SetCookie: s.clientCookie(token),
		Body: ClientResponse{
			ClientID:  replica.ID(),
			Token:     token,
			ExpiresAt: time.Now().Add(s.registry.TokenDuration()),
			View:      replica.View(),
		},
	}, nil
}

// ClearCookieOutput expires the client cookie.
type ClearCookieOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
}

func (s *Server) handleDeleteClient(ctx context.Context, _ *struct{}) (*ClearCookieOutput, error) {
	replica, err := replicaFrom(ctx)
	if err != nil {
		return nil, err
	}
	s.registry.Remove(replica.ID())

	cookie := s.clientCookie("")
	cookie.MaxAge = -1
	return &ClearCookieOutput{SetCookie: cookie}, nil
}
