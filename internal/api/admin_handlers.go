package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	security := []map[string][]string{{"client": {}}}
	tags := []string{"Admin"}

	huma.Register(s.api, huma.Operation{
		OperationID: "adminListMovies",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/movies",
		Summary:     "List movies",
		Description: "Returns the catalog as the admin panel shows it",
		Tags:        tags,
		Security:    security,
	}, s.handleAdminListMovies)

	huma.Register(s.api, huma.Operation{
		OperationID:   "adminCreateMovie",
		Method:        http.MethodPost,
		Path:          "/api/v1/admin/movies",
		Summary:       "Create movie",
		Tags:          tags,
		Security:      security,
		DefaultStatus: http.StatusCreated,
	}, s.handleAdminCreateMovie)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminMovieForm",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/movies/{id}/form",
		Summary:     "Get edit form",
		Description: "Returns the movie as a prefilled edit form",
		Tags:        tags,
		Security:    security,
	}, s.handleAdminMovieForm)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminUpdateMovie",
		Method:      http.MethodPut,
		Path:        "/api/v1/admin/movies/{id}",
		Summary:     "Update movie",
		Description: "Overwrites the form fields; the favorites counter is kept",
		Tags:        tags,
		Security:    security,
	}, s.handleAdminUpdateMovie)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminDeleteMovie",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/movies/{id}",
		Summary:     "Delete movie",
		Tags:        tags,
		Security:    security,
	}, s.handleAdminDeleteMovie)

	huma.Register(s.api, huma.Operation{
		OperationID: "adminDeleteAllMovies",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/movies",
		Summary:     "Delete every movie",
		Description: "Deletes movies one by one, stopping at the first failure",
		Tags:        tags,
		Security:    security,
	}, s.handleAdminDeleteAllMovies)
}

// === DTOs ===

// MovieIDInput identifies a movie by path.
type MovieIDInput struct {
	ID string `path:"id" doc:"Movie ID"`
}

// MovieListOutput returns the admin catalog listing.
type MovieListOutput struct {
	Body struct {
		Status domain.CatalogStatus  `json:"status"`
		Movies []domain.CatalogEntry `json:"movies"`
	}
}

// MovieFormInput carries a create form.
type MovieFormInput struct {
	Body service.MovieForm
}

// UpdateMovieInput carries an edit form for a movie.
type UpdateMovieInput struct {
	ID   string `path:"id" doc:"Movie ID"`
	Body service.MovieForm
}

// MovieOutput returns a single movie.
type MovieOutput struct {
	Body domain.CatalogEntry
}

// MovieCreatedOutput returns the id of a created movie.
type MovieCreatedOutput struct {
	Body struct {
		ID string `json:"id"`
	}
}

// MovieFormOutput returns a prefilled form.
type MovieFormOutput struct {
	Body service.MovieForm
}

// DeleteAllOutput reports a bulk delete.
type DeleteAllOutput struct {
	Body service.DeleteAllResult
}

// === Handlers ===

func (s *Server) handleAdminListMovies(ctx context.Context, _ *struct{}) (*MovieListOutput, error) {
	replica, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	view := replica.View()
	out := &MovieListOutput{}
	out.Body.Status = view.CatalogStatus
	out.Body.Movies = view.Movies
	if out.Body.Movies == nil {
		out.Body.Movies = []domain.CatalogEntry{}
	}
	return out, nil
}

func (s *Server) handleAdminCreateMovie(ctx context.Context, input *MovieFormInput) (*MovieCreatedOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	movieID, err := s.services.Catalog.Create(ctx, input.Body)
	if err != nil {
		return nil, err
	}

	out := &MovieCreatedOutput{}
	out.Body.ID = movieID
	return out, nil
}

func (s *Server) handleAdminMovieForm(ctx context.Context, input *MovieIDInput) (*MovieFormOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	form, err := s.services.Catalog.EditForm(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &MovieFormOutput{Body: form}, nil
}

func (s *Server) handleAdminUpdateMovie(ctx context.Context, input *UpdateMovieInput) (*MovieOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Catalog.Update(ctx, input.ID, input.Body); err != nil {
		return nil, err
	}

	entry, err := s.services.Catalog.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &MovieOutput{Body: entry}, nil
}

func (s *Server) handleAdminDeleteMovie(ctx context.Context, input *MovieIDInput) (*struct{}, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Catalog.Delete(ctx, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleAdminDeleteAllMovies(ctx context.Context, _ *struct{}) (*DeleteAllOutput, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Catalog.DeleteAll(ctx)
	if err != nil {
		s.logger.Error("bulk delete failed", "deleted", result.Deleted, "failed", result.Failed, "error", err)
		return nil, err
	}
	return &DeleteAllOutput{Body: result}, nil
}
