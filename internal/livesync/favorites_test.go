package livesync

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/logger"
	"github.com/layarapp/layar-server/internal/remote"
)

func setFavorites(t *testing.T, docs remote.Documents, uid string, ids ...any) {
	t.Helper()
	require.NoError(t, docs.Set(context.Background(), remote.CollectionFavorites, uid, map[string]any{
		domain.FieldMovieIDs: ids,
	}))
}

func TestFavorites_FollowsDocument(t *testing.T) {
	docs := setupDocs(t)
	setFavorites(t, docs, "u1", "m1", "m2")

	s := NewStore()
	f := NewFavorites(docs, s, logger.Discard())
	t.Cleanup(f.Release)

	f.Follow("u1")
	require.Eventually(t, func() bool { return slices.Equal(favoriteIDs(s), []string{"m1", "m2"}) }, time.Second, 5*time.Millisecond)

	setFavorites(t, docs, "u1", "m3")
	require.Eventually(t, func() bool { return slices.Equal(favoriteIDs(s), []string{"m3"}) }, time.Second, 5*time.Millisecond)
}

func TestFavorites_AbsentDocumentIsEmpty(t *testing.T) {
	docs := setupDocs(t)
	s := NewStore()
	s.Dispatch(SetFavorites{IDs: domain.NewIDSet("stale")})

	f := NewFavorites(docs, s, logger.Discard())
	t.Cleanup(f.Release)
	f.Follow("nobody")

	require.Eventually(t, func() bool { return len(favoriteIDs(s)) == 0 }, time.Second, 5*time.Millisecond)
}

func TestFavorites_MissingFieldIsEmpty(t *testing.T) {
	docs := setupDocs(t)
	require.NoError(t, docs.Set(context.Background(), remote.CollectionFavorites, "u1", map[string]any{}))

	s := NewStore()
	f := NewFavorites(docs, s, logger.Discard())
	t.Cleanup(f.Release)
	f.Follow("u1")

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, favoriteIDs(s))
}

func TestFavorites_RekeyNeverLeaksPreviousOwner(t *testing.T) {
	docs := setupDocs(t)
	setFavorites(t, docs, "alice", "a1")
	setFavorites(t, docs, "bob", "b1")

	s := NewStore()
	f := NewFavorites(docs, s, logger.Discard())
	t.Cleanup(f.Release)

	f.Follow("alice")
	require.Eventually(t, func() bool { return slices.Equal(favoriteIDs(s), []string{"a1"}) }, time.Second, 5*time.Millisecond)

	log := watchStore(t, s)
	f.Follow("bob")
	assert.Equal(t, 1, docs.ListenerCount())

	// Late events for the previous owner are dropped.
	setFavorites(t, docs, "alice", "a1", "a2")
	f.apply("alice", &remote.Document{ID: "alice", Exists: true, Fields: map[string]any{
		domain.FieldMovieIDs: []any{"a9"},
	}}, nil)

	require.Eventually(t, func() bool { return slices.Equal(favoriteIDs(s), []string{"b1"}) }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	for _, st := range log.all() {
		for id := range st.Auth.FavoriteIDs {
			assert.Equal(t, "b1", id)
		}
	}
}

func TestFavorites_ReleaseDropsListener(t *testing.T) {
	docs := setupDocs(t)
	f := NewFavorites(docs, NewStore(), logger.Discard())

	f.Follow("u1")
	f.Follow("u1")
	assert.Equal(t, 1, docs.ListenerCount())

	f.Release()
	assert.Equal(t, 0, docs.ListenerCount())
	assert.Empty(t, f.Owner())
}
