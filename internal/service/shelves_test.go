package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/layarapp/layar-server/internal/domain"
)

func ids(movies []domain.CatalogEntry) []string {
	out := make([]string, 0, len(movies))
	for _, m := range movies {
		out = append(out, m.ID)
	}
	return out
}

func TestBuildShelves_Ranking(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(days int) *time.Time {
		t := base.AddDate(0, 0, days)
		return &t
	}

	view := domain.ViewState{
		Movies: []domain.CatalogEntry{
			{ID: "a", Rating: 7, FavoritesCount: 1, CreatedAt: at(1)},
			{ID: "b", Rating: 9, FavoritesCount: 5, CreatedAt: at(3)},
			{ID: "c", Rating: 8, FavoritesCount: 5},
			{ID: "d", Rating: 9, FavoritesCount: 0, CreatedAt: at(2)},
		},
		FavoriteIDs: []string{"d", "a", "gone"},
	}

	shelves := BuildShelves(view)

	assert.Equal(t, []string{"b", "d", "c", "a"}, ids(shelves.Hero))
	assert.Equal(t, []string{"b", "d", "c", "a"}, ids(shelves.TopRated))
	assert.Equal(t, []string{"b", "c", "a", "d"}, ids(shelves.Trending), "ties keep catalog order")
	assert.Equal(t, []string{"b", "d", "a"}, ids(shelves.NewReleases), "undated entries are excluded")
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(shelves.ContinueWatching))
	assert.Equal(t, []string{"a", "d"}, ids(shelves.MyList))

	assert.Equal(t, "a", view.Movies[0].ID, "input is not reordered")
}

func TestBuildShelves_Limits(t *testing.T) {
	var movies []domain.CatalogEntry
	for i := range 15 {
		movies = append(movies, domain.CatalogEntry{ID: fmt.Sprintf("m%02d", i), Rating: float64(i % 10)})
	}

	shelves := BuildShelves(domain.ViewState{Movies: movies})
	assert.Len(t, shelves.Hero, 5)
	assert.Len(t, shelves.TopRated, 10)
	assert.Len(t, shelves.Trending, 10)
	assert.Empty(t, shelves.NewReleases)
	assert.Len(t, shelves.ContinueWatching, 15)
	assert.NotNil(t, shelves.MyList)
}

func TestBuildShelves_Empty(t *testing.T) {
	shelves := BuildShelves(domain.ViewState{})
	assert.Empty(t, shelves.Hero)
	assert.NotNil(t, shelves.Hero)
	assert.Empty(t, shelves.MyList)
}
