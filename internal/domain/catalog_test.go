package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeGenres(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Action, Drama ", []string{"Action", "Drama"}},
		{" Horror ,, Thriller,", []string{"Horror", "Thriller"}},
		{"Comedy", []string{"Comedy"}},
		{"", []string{}},
		{" , ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeGenres(tt.in))
		})
	}
}

func TestJoinGenresRoundTrip(t *testing.T) {
	assert.Equal(t, "Action, Drama", JoinGenres([]string{"Action", "Drama"}))
	assert.Equal(t, []string{"Action", "Drama"}, NormalizeGenres(JoinGenres([]string{"Action", "Drama"})))
}

func TestCatalogEntryFromFields(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	entry := CatalogEntryFromFields("m1", map[string]any{
		"title":          "Heat",
		"description":    "Crime saga",
		"year":           "1995",
		"genre":          []any{"Crime", "Drama"},
		"duration":       "2h 50m",
		"rating":         8.3,
		"agerating":      "R",
		"poster":         "https://img.test/p.jpg",
		"banner":         "https://img.test/b.jpg",
		"favoritesCount": float64(4),
		"createdAt":      created.Format(time.RFC3339Nano),
	})

	assert.Equal(t, "m1", entry.ID)
	assert.Equal(t, "Heat", entry.Title)
	assert.Equal(t, 1995, entry.Year)
	assert.Equal(t, []string{"Crime", "Drama"}, entry.Genre)
	assert.InDelta(t, 8.3, entry.Rating, 0.001)
	assert.Equal(t, "R", entry.AgeRating)
	assert.Equal(t, "https://img.test/p.jpg", entry.PosterURL)
	assert.Equal(t, int64(4), entry.FavoritesCount)
	require.NotNil(t, entry.CreatedAt)
	assert.True(t, created.Equal(*entry.CreatedAt))
}

func TestCatalogEntryFromFields_Tolerant(t *testing.T) {
	entry := CatalogEntryFromFields("m2", map[string]any{
		"title":          "Legacy",
		"genre":          "Action, Drama ",
		"rating":         "7.5",
		"favoritesCount": float64(-2),
	})

	assert.Equal(t, []string{"Action", "Drama"}, entry.Genre)
	assert.InDelta(t, 7.5, entry.Rating, 0.001)
	assert.Equal(t, int64(0), entry.FavoritesCount)
	assert.Nil(t, entry.CreatedAt)

	empty := CatalogEntryFromFields("m3", map[string]any{})
	assert.Equal(t, []string{}, empty.Genre)
}

func TestHasFavoritesCount(t *testing.T) {
	assert.True(t, HasFavoritesCount(map[string]any{"favoritesCount": float64(0)}))
	assert.False(t, HasFavoritesCount(map[string]any{"favoritesCount": "3"}))
	assert.False(t, HasFavoritesCount(map[string]any{}))
}
