// Package search keeps a Bleve full-text index of the movie catalog and
// answers title, description and genre queries with fuzzy matching and
// genre facets.
package search

import (
	"github.com/layarapp/layar-server/internal/domain"
)

// MovieDocument is the indexed form of a catalog entry.
type MovieDocument struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	Genres         []string `json:"genre,omitempty"`
	AgeRating      string   `json:"agerating,omitempty"`
	Year           int      `json:"year,omitempty"`
	Rating         float64  `json:"rating"`
	FavoritesCount int64    `json:"favorites_count"`
	CreatedAt      int64    `json:"created_at"` // Unix millis, 0 when unknown
}

// DocumentFromEntry converts a catalog entry for indexing.
func DocumentFromEntry(e domain.CatalogEntry) *MovieDocument {
	doc := &MovieDocument{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		Genres:         e.Genre,
		AgeRating:      e.AgeRating,
		Year:           e.Year,
		Rating:         e.Rating,
		FavoritesCount: e.FavoritesCount,
	}
	if e.CreatedAt != nil {
		doc.CreatedAt = e.CreatedAt.UnixMilli()
	}
	return doc
}

// ToMap converts the document to a map whose keys match the index mapping.
func (d *MovieDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":              d.ID,
		"title":           d.Title,
		"rating":          d.Rating,
		"favorites_count": d.FavoritesCount,
		"created_at":      d.CreatedAt,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if len(d.Genres) > 0 {
		m["genre"] = d.Genres
	}
	if d.AgeRating != "" {
		m["agerating"] = d.AgeRating
	}
	if d.Year > 0 {
		m["year"] = d.Year
	}
	return m
}
