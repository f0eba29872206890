package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/layarapp/layar-server/internal/domain"
	domainerrors "github.com/layarapp/layar-server/internal/errors"
	"github.com/layarapp/layar-server/internal/remote"
	"github.com/layarapp/layar-server/internal/validation"
)

// MovieForm is the admin create/edit form. Genre is the comma-separated
// text the form edits; it is stored as a list.
type MovieForm struct {
	Title       string  `json:"title" validate:"notblank"`
	Description string  `json:"description" required:"false"`
	Year        int     `json:"year,omitempty" validate:"omitempty,gte=1888,lte=2100"`
	Genre       string  `json:"genre" validate:"notblank"`
	Duration    string  `json:"duration" required:"false"`
	Rating      float64 `json:"rating" required:"false" validate:"gte=0,lte=10"`
	AgeRating   string  `json:"ageRating" required:"false"`
	PosterURL   string  `json:"posterURL,omitempty" validate:"omitempty,url"`
	BannerURL   string  `json:"bannerURL,omitempty" validate:"omitempty,url"`
}

// fields maps the form to stored movie fields. The counter and creation
// time are not part of it.
func (f MovieForm) fields() map[string]any {
	return map[string]any{
		domain.FieldTitle:       f.Title,
		domain.FieldDescription: f.Description,
		domain.FieldYear:        f.Year,
		domain.FieldGenre:       domain.NormalizeGenres(f.Genre),
		domain.FieldDuration:    f.Duration,
		domain.FieldRating:      f.Rating,
		domain.FieldAgeRating:   f.AgeRating,
		domain.FieldPoster:      f.PosterURL,
		domain.FieldBanner:      f.BannerURL,
	}
}

// FormFromEntry prefills the form from an existing entry.
func FormFromEntry(entry domain.CatalogEntry) MovieForm {
	return MovieForm{
		Title:       entry.Title,
		Description: entry.Description,
		Year:        entry.Year,
		Genre:       domain.JoinGenres(entry.Genre),
		Duration:    entry.Duration,
		Rating:      entry.Rating,
		AgeRating:   entry.AgeRating,
		PosterURL:   entry.PosterURL,
		BannerURL:   entry.BannerURL,
	}
}

// DeleteAllResult reports a bulk delete. Deletion stops at the first failure.
type DeleteAllResult struct {
	Deleted int    `json:"deleted"`
	Failed  string `json:"failed,omitempty"`
}

// CatalogService is the admin catalog surface.
type CatalogService struct {
	docs      remote.Documents
	validator *validation.Validator
	logger    *slog.Logger
}

// NewCatalogService creates the admin catalog service.
func NewCatalogService(docs remote.Documents, validator *validation.Validator, logger *slog.Logger) *CatalogService {
	return &CatalogService{docs: docs, validator: validator, logger: logger}
}

// Create adds a movie with a zero favorites counter.
func (s *CatalogService) Create(ctx context.Context, form MovieForm) (string, error) {
	if err := s.validator.Validate(form); err != nil {
		return "", err
	}

	fields := form.fields()
	fields[domain.FieldCreatedAt] = remote.ServerTimestamp
	fields[domain.FieldFavoritesCount] = 0

	movieID, err := s.docs.Add(ctx, remote.CollectionMovies, fields)
	if err != nil {
		return "", fmt.Errorf("add movie: %w", err)
	}

	s.logger.Info("movie created", "movie_id", movieID, "title", form.Title)
	return movieID, nil
}

// Update overwrites the form fields of an existing movie.
func (s *CatalogService) Update(ctx context.Context, movieID string, form MovieForm) error {
	if err := s.validator.Validate(form); err != nil {
		return err
	}

	err := s.docs.Update(ctx, remote.CollectionMovies, movieID, remote.SetFields(form.fields())...)
	if remote.IsNotFound(err) {
		return domainerrors.NotFoundf("movie %s not found", movieID)
	}
	if err != nil {
		return fmt.Errorf("update movie: %w", err)
	}

	s.logger.Info("movie updated", "movie_id", movieID)
	return nil
}

// Delete removes a movie. Favorite lists that reference it are left alone.
func (s *CatalogService) Delete(ctx context.Context, movieID string) error {
	if err := s.docs.Delete(ctx, remote.CollectionMovies, movieID); err != nil {
		return fmt.Errorf("delete movie: %w", err)
	}
	s.logger.Info("movie deleted", "movie_id", movieID)
	return nil
}

// DeleteAll removes every movie in listing order.
func (s *CatalogService) DeleteAll(ctx context.Context) (DeleteAllResult, error) {
	docs, err := s.docs.List(ctx, remote.CollectionMovies)
	if err != nil {
		return DeleteAllResult{}, fmt.Errorf("list movies: %w", err)
	}

	var result DeleteAllResult
	for _, doc := range docs {
		if err := s.docs.Delete(ctx, remote.CollectionMovies, doc.ID); err != nil {
			result.Failed = doc.ID
			s.logger.Error("bulk delete stopped", "movie_id", doc.ID, "deleted", result.Deleted, "error", err)
			return result, fmt.Errorf("delete movie %s: %w", doc.ID, err)
		}
		result.Deleted++
	}

	s.logger.Info("catalog cleared", "deleted", result.Deleted)
	return result, nil
}

// Get returns one catalog entry.
func (s *CatalogService) Get(ctx context.Context, movieID string) (domain.CatalogEntry, error) {
	doc, err := s.docs.Get(ctx, remote.CollectionMovies, movieID)
	if err != nil {
		return domain.CatalogEntry{}, fmt.Errorf("get movie: %w", err)
	}
	if !doc.Exists {
		return domain.CatalogEntry{}, domainerrors.NotFoundf("movie %s not found", movieID)
	}
	return domain.CatalogEntryFromFields(doc.ID, doc.Fields), nil
}

// EditForm loads a movie into the edit form.
func (s *CatalogService) EditForm(ctx context.Context, movieID string) (MovieForm, error) {
	entry, err := s.Get(ctx, movieID)
	if err != nil {
		return MovieForm{}, err
	}
	return FormFromEntry(entry), nil
}

// List returns every catalog entry.
func (s *CatalogService) List(ctx context.Context) ([]domain.CatalogEntry, error) {
	docs, err := s.docs.List(ctx, remote.CollectionMovies)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}

	entries := make([]domain.CatalogEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, domain.CatalogEntryFromFields(doc.ID, doc.Fields))
	}
	return entries, nil
}
