package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/guard"
	"github.com/layarapp/layar-server/internal/service"
)

func (s *Server) registerViewRoutes() {
	security := []map[string][]string{{"client": {}}}

	huma.Register(s.api, huma.Operation{
		OperationID: "getView",
		Method:      http.MethodGet,
		Path:        "/api/v1/view",
		Summary:     "Get view state",
		Description: "Returns the client's session, catalog and favorites as one view",
		Tags:        []string{"View"},
		Security:    security,
	}, s.handleGetView)

	huma.Register(s.api, huma.Operation{
		OperationID: "navigate",
		Method:      http.MethodGet,
		Path:        "/api/v1/navigate",
		Summary:     "Resolve a navigation",
		Description: "Returns the access decision for a page path: wait, redirect or render",
		Tags:        []string{"View"},
		Security:    security,
	}, s.handleNavigate)

	huma.Register(s.api, huma.Operation{
		OperationID: "getShelves",
		Method:      http.MethodGet,
		Path:        "/api/v1/shelves",
		Summary:     "Get home shelves",
		Tags:        []string{"View"},
		Security:    security,
	}, s.handleGetShelves)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleFavorite",
		Method:      http.MethodPost,
		Path:        "/api/v1/favorites/{movieID}/toggle",
		Summary:     "Toggle favorite",
		Description: "Adds the movie to the signed-in user's favorites or removes it",
		Tags:        []string{"Favorites"},
		Security:    security,
	}, s.handleToggleFavorite)
}

// ViewOutput returns the replica's view state.
type ViewOutput struct {
	Body domain.ViewState
}

// NavigateInput names the page being navigated to.
type NavigateInput struct {
	Path string `query:"path" default:"/" doc:"Page path, e.g. /home"`
}

// NavigateOutput returns the guard decision.
type NavigateOutput struct {
	Body guard.Decision
}

// ShelvesOutput returns the home page rows.
type ShelvesOutput struct {
	Body service.Shelves
}

// ToggleFavoriteInput names the movie to toggle.
type ToggleFavoriteInput struct {
	MovieID string `path:"movieID" doc:"Movie ID"`
}

// ToggleFavoriteResponse reports the requested membership.
type ToggleFavoriteResponse struct {
	MovieID  string `json:"movieId"`
	Favorite bool   `json:"favorite" doc:"True when the movie was added"`
}

// ToggleFavoriteOutput wraps the toggle response for Huma.
type ToggleFavoriteOutput struct {
	Body ToggleFavoriteResponse
}

func (s *Server) handleGetView(ctx context.Context, _ *struct{}) (*ViewOutput, error) {
	replica, err := replicaFrom(ctx)
	if err != nil {
		return nil, err
	}
	s.settledSession(ctx, replica)
	return &ViewOutput{Body: replica.View()}, nil
}

func (s *Server) handleNavigate(ctx context.Context, input *NavigateInput) (*NavigateOutput, error) {
	replica, err := replicaFrom(ctx)
	if err != nil {
		return nil, err
	}

	decision, ok := guard.Navigate(s.settledSession(ctx, replica), input.Path)
	if !ok {
		return nil, huma.Error404NotFound("Page not found")
	}
	return &NavigateOutput{Body: decision}, nil
}

func (s *Server) handleGetShelves(ctx context.Context, _ *struct{}) (*ShelvesOutput, error) {
	replica, _, err := s.requireSignedIn(ctx)
	if err != nil {
		return nil, err
	}
	return &ShelvesOutput{Body: service.BuildShelves(replica.View())}, nil
}

func (s *Server) handleToggleFavorite(ctx context.Context, input *ToggleFavoriteInput) (*ToggleFavoriteOutput, error) {
	replica, _, err := s.requireSignedIn(ctx)
	if err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.opts.SettleTimeout)
	defer cancel()

	added, err := replica.ToggleFavorite(waitCtx, input.MovieID)
	if err != nil {
		return nil, err
	}
	return &ToggleFavoriteOutput{Body: ToggleFavoriteResponse{MovieID: input.MovieID, Favorite: added}}, nil
}
