package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layarapp/layar-server/internal/docstore"
	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/logger"
	"github.com/layarapp/layar-server/internal/remote"
	"github.com/layarapp/layar-server/internal/store"
)

func setupTestIndex(t *testing.T) (*SearchIndex, string) {
	t.Helper()

	dir := t.TempDir()
	index, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	return index, dir
}

func seedIndex(t *testing.T, index *SearchIndex) {
	t.Helper()
	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	entries := []domain.CatalogEntry{
		{ID: "m1", Title: "Heat", Description: "A crew of professional thieves", Genre: []string{"Crime", "Drama"}, Year: 1995, Rating: 8.3, FavoritesCount: 4},
		{ID: "m2", Title: "Ronin", Description: "Mercenaries chase a briefcase", Genre: []string{"Action"}, Year: 1998, Rating: 7.2, FavoritesCount: 9, CreatedAt: &created},
		{ID: "m3", Title: "Drive", Description: "A stunt driver moonlights", Genre: []string{"Crime"}, Year: 2011, Rating: 7.8},
	}
	docs := make([]*MovieDocument, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, DocumentFromEntry(e))
	}
	require.NoError(t, index.IndexDocuments(docs))
}

func hitIDs(res *SearchResult) []string {
	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids
}

func TestNewSearchIndex_Empty(t *testing.T) {
	index, _ := setupTestIndex(t)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearch_TitleMatch(t *testing.T) {
	index, _ := setupTestIndex(t)
	seedIndex(t, index)

	res, err := index.Search(context.Background(), SearchParams{Query: "heat", Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.Equal(t, "m1", res.Hits[0].ID)
	assert.Equal(t, "Heat", res.Hits[0].Title)
	assert.Equal(t, 1995, res.Hits[0].Year)
}

func TestSearch_FuzzyTitle(t *testing.T) {
	index, _ := setupTestIndex(t)
	seedIndex(t, index)

	res, err := index.Search(context.Background(), SearchParams{Query: "ronn", Limit: 10})
	require.NoError(t, err)
	assert.Contains(t, hitIDs(res), "m2")
}

func TestSearch_GenreFilterAndFacets(t *testing.T) {
	index, _ := setupTestIndex(t)
	seedIndex(t, index)

	params := DefaultSearchParams()
	params.Genres = []string{"Crime"}
	params.SortBy = "title"
	params.SortOrder = "asc"

	res, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, []string{"m3", "m1"}, hitIDs(res))

	all, err := index.Search(context.Background(), DefaultSearchParams())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), all.Total)
	assert.Contains(t, all.Facets, FacetCount{Value: "Crime", Count: 2})
}

func TestSearch_SortByPopularity(t *testing.T) {
	index, _ := setupTestIndex(t)
	seedIndex(t, index)

	res, err := index.Search(context.Background(), SearchParams{SortBy: "popular", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"m2", "m1", "m3"}, hitIDs(res))
}

func TestSearch_RatingAndYearFilters(t *testing.T) {
	index, _ := setupTestIndex(t)
	seedIndex(t, index)

	res, err := index.Search(context.Background(), SearchParams{MinRating: 7.5, MinYear: 2000, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"m3"}, hitIDs(res))
}

func TestSearchIndex_DeleteAndAllIDs(t *testing.T) {
	ctx := context.Background()
	index, _ := setupTestIndex(t)
	seedIndex(t, index)

	ids, err := index.AllIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"m1", "m2", "m3"}, ids)

	require.NoError(t, index.DeleteDocument("m1"))
	require.NoError(t, index.DeleteDocuments([]string{"m2"}))

	ids, err = index.AllIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m3"}, ids)
}

func TestSearchIndex_ReopenKeepsDocuments(t *testing.T) {
	index, dir := setupTestIndex(t)
	seedIndex(t, index)
	require.NoError(t, index.Close())

	reopened, err := NewSearchIndex(Options{DataPath: dir})
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestSearchIndex_Rebuild(t *testing.T) {
	index, _ := setupTestIndex(t)
	seedIndex(t, index)

	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSyncer_FollowsMoviesCollection(t *testing.T) {
	ctx := context.Background()

	db, err := store.New(filepath.Join(t.TempDir(), "db"), nil)
	require.NoError(t, err)
	docs := docstore.New(db, logger.Discard())
	t.Cleanup(func() {
		docs.Close()
		_ = db.Close()
	})

	index, _ := setupTestIndex(t)
	// Left over from an earlier run.
	require.NoError(t, index.IndexDocument(&MovieDocument{ID: "stale", Title: "Gone"}))

	require.NoError(t, docs.Set(ctx, remote.CollectionMovies, "m1", map[string]any{
		domain.FieldTitle: "Heat",
		domain.FieldGenre: []any{"Crime"},
	}))

	syncer := NewSyncer(index, docs, logger.Discard())
	syncer.Start()
	t.Cleanup(syncer.Stop)

	select {
	case <-syncer.Synced():
	case <-time.After(2 * time.Second):
		t.Fatal("initial sync did not complete")
	}

	ids, err := index.AllIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, ids)

	require.NoError(t, docs.Set(ctx, remote.CollectionMovies, "m2", map[string]any{domain.FieldTitle: "Ronin"}))
	require.NoError(t, docs.Delete(ctx, remote.CollectionMovies, "m1"))

	require.Eventually(t, func() bool {
		ids, err := index.AllIDs(ctx)
		return err == nil && len(ids) == 1 && ids[0] == "m2"
	}, 2*time.Second, 10*time.Millisecond)
}
