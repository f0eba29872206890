package docstore_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layarapp/layar-server/internal/docstore"
	"github.com/layarapp/layar-server/internal/remote"
	"github.com/layarapp/layar-server/internal/store"
)

func setupDocs(t *testing.T) *docstore.Store {
	t.Helper()

	db, err := store.New(filepath.Join(t.TempDir(), "docs.db"), nil)
	require.NoError(t, err)

	docs := docstore.New(db, nil)
	t.Cleanup(func() {
		docs.Close()
		_ = db.Close()
	})
	return docs
}

func TestGet_AbsentIsNotAnError(t *testing.T) {
	docs := setupDocs(t)

	doc, err := docs.Get(context.Background(), remote.CollectionUsers, "ghost")
	require.NoError(t, err)
	assert.False(t, doc.Exists)
	assert.Nil(t, doc.Fields)
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	docs := setupDocs(t)

	require.NoError(t, docs.Set(ctx, remote.CollectionUsers, "u1", map[string]any{
		"username":  "alice",
		"role":      "user",
		"createdAt": remote.ServerTimestamp,
	}))

	doc, err := docs.Get(ctx, remote.CollectionUsers, "u1")
	require.NoError(t, err)
	require.True(t, doc.Exists)
	assert.Equal(t, "alice", doc.Fields["username"])

	created, ok := doc.Fields["createdAt"].(string)
	require.True(t, ok)
	_, err = time.Parse(time.RFC3339Nano, created)
	assert.NoError(t, err)
}

func TestSet_ReplacesWholeDocument(t *testing.T) {
	ctx := context.Background()
	docs := setupDocs(t)

	require.NoError(t, docs.Set(ctx, "movies", "m1", map[string]any{"title": "A", "year": 1999}))
	require.NoError(t, docs.Set(ctx, "movies", "m1", map[string]any{"title": "B"}))

	doc, err := docs.Get(ctx, "movies", "m1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "B"}, doc.Fields)
}

func TestAdd_GeneratesID(t *testing.T) {
	ctx := context.Background()
	docs := setupDocs(t)

	id1, err := docs.Add(ctx, "movies", map[string]any{"title": "Heat"})
	require.NoError(t, err)
	id2, err := docs.Add(ctx, "movies", map[string]any{"title": "Ronin"})
	require.NoError(t, err)

	assert.Len(t, id1, 20)
	assert.NotEqual(t, id1, id2)

	all, err := docs.List(ctx, "movies")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdate_MissingDocumentIsNotFound(t *testing.T) {
	docs := setupDocs(t)

	err := docs.Update(context.Background(), remote.CollectionFavorites, "u1", remote.ArrayUnion("movieIds", "m1"))
	require.Error(t, err)
	assert.True(t, remote.IsNotFound(err))

	doc, err := docs.Get(context.Background(), remote.CollectionFavorites, "u1")
	require.NoError(t, err)
	assert.False(t, doc.Exists)
}

func TestUpdate_ArrayOpsAreSetLike(t *testing.T) {
	ctx := context.Background()
	docs := setupDocs(t)
	require.NoError(t, docs.Set(ctx, remote.CollectionFavorites, "u1", map[string]any{"movieIds": []string{"m1"}}))

	require.NoError(t, docs.Update(ctx, remote.CollectionFavorites, "u1", remote.ArrayUnion("movieIds", "m1", "m2")))
	doc, err := docs.Get(ctx, remote.CollectionFavorites, "u1")
	require.NoError(t, err)
	assert.Equal(t, []any{"m1", "m2"}, doc.Fields["movieIds"])

	require.NoError(t, docs.Update(ctx, remote.CollectionFavorites, "u1", remote.ArrayRemove("movieIds", "m1", "m9")))
	doc, err = docs.Get(ctx, remote.CollectionFavorites, "u1")
	require.NoError(t, err)
	assert.Equal(t, []any{"m2"}, doc.Fields["movieIds"])
}

func TestUpdate_IncrementAndSet(t *testing.T) {
	ctx := context.Background()
	docs := setupDocs(t)
	require.NoError(t, docs.Set(ctx, "movies", "m1", map[string]any{"title": "Heat"}))

	require.NoError(t, docs.Update(ctx, "movies", "m1",
		remote.Increment("favoritesCount", 1),
		remote.Increment("favoritesCount", 1),
		remote.SetField("rating", 8.3),
	))
	require.NoError(t, docs.Update(ctx, "movies", "m1", remote.Increment("favoritesCount", -1), remote.DeleteField("title")))

	doc, err := docs.Get(ctx, "movies", "m1")
	require.NoError(t, err)
	assert.Equal(t, float64(1), doc.Fields["favoritesCount"])
	assert.Equal(t, 8.3, doc.Fields["rating"])
	assert.NotContains(t, doc.Fields, "title")
}

func TestUpdate_ConcurrentIncrementsAreAtomic(t *testing.T) {
	ctx := context.Background()
	docs := setupDocs(t)
	require.NoError(t, docs.Set(ctx, "movies", "m1", map[string]any{"favoritesCount": 0}))

	var wg sync.WaitGroup
	for range 25 {
		wg.Go(func() {
			assert.NoError(t, docs.Update(ctx, "movies", "m1", remote.Increment("favoritesCount", 1)))
		})
	}
	wg.Wait()

	doc, err := docs.Get(ctx, "movies", "m1")
	require.NoError(t, err)
	assert.Equal(t, float64(25), doc.Fields["favoritesCount"])
}

func TestDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	docs := setupDocs(t)
	require.NoError(t, docs.Set(ctx, "movies", "m1", map[string]any{"title": "Heat"}))

	require.NoError(t, docs.Delete(ctx, "movies", "m1"))
	require.NoError(t, docs.Delete(ctx, "movies", "m1"))

	doc, err := docs.Get(ctx, "movies", "m1")
	require.NoError(t, err)
	assert.False(t, doc.Exists)
}

func TestQuery_Equality(t *testing.T) {
	ctx := context.Background()
	docs := setupDocs(t)
	require.NoError(t, docs.Set(ctx, remote.CollectionUsers, "u1", map[string]any{"username": "alice"}))
	require.NoError(t, docs.Set(ctx, remote.CollectionUsers, "u2", map[string]any{"username": "bob"}))

	found, err := docs.Query(ctx, remote.CollectionUsers, "username", "bob")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "u2", found[0].ID)

	none, err := docs.Query(ctx, remote.CollectionUsers, "username", "carol")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInvalidNames(t *testing.T) {
	ctx := context.Background()
	docs := setupDocs(t)

	assert.Error(t, docs.Set(ctx, "bad:name", "x", nil))
	assert.Error(t, docs.Set(ctx, "movies", "", nil))
	_, err := docs.List(ctx, "")
	assert.Error(t, err)
}

func TestUpdate_RejectsInvalidIDs(t *testing.T) {
	ctx := context.Background()
	docs := setupDocs(t)

	for _, docID := range []string{"", "a/b", "idx:title"} {
		err := docs.Update(ctx, "movies", docID, remote.SetField("title", "x"))
		require.Error(t, err, docID)
		assert.False(t, remote.IsNotFound(err), docID)
	}
}
