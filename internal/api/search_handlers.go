package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/layarapp/layar-server/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "search",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search catalog",
		Description: "Full-text search over titles, descriptions and genres",
		Tags:        []string{"Search"},
		Security:    []map[string][]string{{"client": {}}},
	}, s.handleSearch)
}

// === DTOs ===

// SearchInput contains parameters for searching the catalog.
type SearchInput struct {
	Query     string  `query:"q" maxLength:"200" doc:"Search query; empty matches everything"`
	Genres    string  `query:"genre" maxLength:"200" doc:"Comma-separated genres, any of"`
	MinYear   int     `query:"minYear" minimum:"0" doc:"Earliest release year"`
	MaxYear   int     `query:"maxYear" minimum:"0" doc:"Latest release year"`
	MinRating float64 `query:"minRating" minimum:"0" maximum:"10" doc:"Minimum rating"`
	Sort      string  `query:"sort" enum:"relevance,title,rating,recent,popular" default:"relevance" doc:"Sort key"`
	Order     string  `query:"order" enum:"asc,desc" default:"desc" doc:"Sort order"`
	Limit     int     `query:"limit" minimum:"0" maximum:"100" doc:"Max results (default 20)"`
	Offset    int     `query:"offset" minimum:"0" doc:"Pagination offset"`
}

// SearchHitResult is a single matching movie.
type SearchHitResult struct {
	ID         string            `json:"id" doc:"Movie ID"`
	Score      float64           `json:"score" doc:"Search relevance score"`
	Title      string            `json:"title"`
	Genres     []string          `json:"genre,omitempty"`
	Year       int               `json:"year,omitempty"`
	Rating     float64           `json:"rating"`
	Favorite   bool              `json:"favorite" doc:"Whether the movie is in the caller's favorites"`
	Highlights map[string]string `json:"highlights,omitempty" doc:"Highlighted matches"`
}

// FacetCount represents a facet value and its count.
type FacetCount struct {
	Value string `json:"value" doc:"Facet value"`
	Count int    `json:"count" doc:"Number of matches"`
}

// SearchResponse contains one page of search results.
type SearchResponse struct {
	Query  string            `json:"query" doc:"Original search query"`
	Total  int64             `json:"total" doc:"Total matches"`
	TookMs int64             `json:"tookMs" doc:"Search duration in milliseconds"`
	Hits   []SearchHitResult `json:"hits" doc:"Search results"`
	Genres []FacetCount      `json:"genres,omitempty" doc:"Genre facet counts"`
}

// SearchOutput wraps the search response for Huma.
type SearchOutput struct {
	Body SearchResponse
}

// === Handlers ===

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	replica, _, err := s.requireSignedIn(ctx)
	if err != nil {
		return nil, err
	}

	params := search.DefaultSearchParams()
	params.Query = input.Query
	params.MinYear = input.MinYear
	params.MaxYear = input.MaxYear
	params.MinRating = input.MinRating
	params.SortBy = input.Sort
	params.SortOrder = input.Order
	params.Offset = input.Offset
	if input.Limit > 0 {
		params.Limit = input.Limit
	}
	if input.Genres != "" {
		for g := range strings.SplitSeq(input.Genres, ",") {
			if g = strings.TrimSpace(g); g != "" {
				params.Genres = append(params.Genres, g)
			}
		}
	}

	result, err := s.services.Search.Search(ctx, params)
	if err != nil {
		s.logger.Error("Search failed", "error", err, "query", input.Query)
		return nil, err
	}

	s.logger.Debug("Search completed",
		"query", input.Query,
		"total", result.Total,
		"took_ms", result.TookMs,
	)

	view := replica.View()
	resp := SearchResponse{
		Query:  input.Query,
		Total:  int64(result.Total), //nolint:gosec // a catalog never nears int64
		TookMs: result.TookMs,
		Hits:   make([]SearchHitResult, 0, len(result.Hits)),
	}
	for _, hit := range result.Hits {
		resp.Hits = append(resp.Hits, SearchHitResult{
			ID:         hit.ID,
			Score:      hit.Score,
			Title:      hit.Title,
			Genres:     hit.Genres,
			Year:       hit.Year,
			Rating:     hit.Rating,
			Favorite:   view.IsFavorite(hit.ID),
			Highlights: hit.Highlights,
		})
	}
	for _, f := range result.Facets {
		resp.Genres = append(resp.Genres, FacetCount{Value: f.Value, Count: f.Count})
	}

	return &SearchOutput{Body: resp}, nil
}
