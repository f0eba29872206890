package domain

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Movie document field names.
const (
	FieldTitle          = "title"
	FieldDescription    = "description"
	FieldYear           = "year"
	FieldGenre          = "genre"
	FieldDuration       = "duration"
	FieldRating         = "rating"
	FieldAgeRating      = "agerating"
	FieldPoster         = "poster"
	FieldBanner         = "banner"
	FieldFavoritesCount = "favoritesCount"
)

// CatalogStatus tracks the catalog subscription.
type CatalogStatus string

// Catalog statuses. The catalog never returns to loading once it succeeded.
const (
	CatalogIdle      CatalogStatus = "idle"
	CatalogLoading   CatalogStatus = "loading"
	CatalogSucceeded CatalogStatus = "succeeded"
)

// CatalogEntry is one movie in the browsable catalog.
type CatalogEntry struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Year           int        `json:"year,omitempty"`
	Genre          []string   `json:"genre"`
	Duration       string     `json:"duration,omitempty"`
	Rating         float64    `json:"rating"`
	AgeRating      string     `json:"ageRating,omitempty"`
	PosterURL      string     `json:"posterURL,omitempty"`
	BannerURL      string     `json:"bannerURL,omitempty"`
	FavoritesCount int64      `json:"favoritesCount"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
}

// NormalizeGenres splits a comma-separated genre string, trims each part
// and drops empty ones: "Action, Drama " becomes ["Action", "Drama"].
func NormalizeGenres(raw string) []string {
	genres := []string{}
	for part := range strings.SplitSeq(raw, ",") {
		if g := norm.NFC.String(strings.TrimSpace(part)); g != "" {
			genres = append(genres, g)
		}
	}
	return genres
}

// JoinGenres renders genres back into the editable comma-separated form.
func JoinGenres(genres []string) string {
	return strings.Join(genres, ", ")
}

// CatalogEntryFromFields maps a raw movie document into a CatalogEntry.
// Documents written by older clients may hold genre as a string and year or
// rating as numeric strings; those are accepted. A missing counter is 0.
func CatalogEntryFromFields(id string, fields map[string]any) CatalogEntry {
	entry := CatalogEntry{
		ID:          id,
		Title:       stringField(fields, FieldTitle),
		Description: stringField(fields, FieldDescription),
		Year:        int(numberField(fields, FieldYear)),
		Duration:    stringField(fields, FieldDuration),
		Rating:      numberField(fields, FieldRating),
		AgeRating:   stringField(fields, FieldAgeRating),
		PosterURL:   stringField(fields, FieldPoster),
		BannerURL:   stringField(fields, FieldBanner),
		CreatedAt:   timeField(fields, FieldCreatedAt),
	}

	switch g := fields[FieldGenre].(type) {
	case string:
		entry.Genre = NormalizeGenres(g)
	case []any:
		entry.Genre = make([]string, 0, len(g))
		for _, v := range g {
			if s, ok := v.(string); ok {
				entry.Genre = append(entry.Genre, s)
			}
		}
	case []string:
		entry.Genre = append([]string(nil), g...)
	default:
		entry.Genre = []string{}
	}

	if count := int64(numberField(fields, FieldFavoritesCount)); count > 0 {
		entry.FavoritesCount = count
	}

	return entry
}

// HasFavoritesCount reports whether the raw document carries a numeric
// counter. Trending only ranks entries that do.
func HasFavoritesCount(fields map[string]any) bool {
	switch fields[FieldFavoritesCount].(type) {
	case float64, int, int64:
		return true
	default:
		return false
	}
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func numberField(fields map[string]any, key string) float64 {
	switch v := fields[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func timeField(fields map[string]any, key string) *time.Time {
	switch v := fields[key].(type) {
	case time.Time:
		return &v
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil
		}
		return &t
	default:
		return nil
	}
}
