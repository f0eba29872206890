package livesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/logger"
	"github.com/layarapp/layar-server/internal/remote"
)

func TestCatalog_StatusProgression(t *testing.T) {
	docs := setupDocs(t)
	addMovie(t, docs, "m1", "Heat")

	s := NewStore()
	log := watchStore(t, s)
	c := NewCatalog(docs, s, logger.Discard())
	t.Cleanup(c.Stop)

	c.Start()
	c.Start()

	require.Eventually(t, func() bool { return len(s.Snapshot().Movies.Data) == 1 }, time.Second, 5*time.Millisecond)
	addMovie(t, docs, "m2", "Ronin")
	require.Eventually(t, func() bool { return len(s.Snapshot().Movies.Data) == 2 }, time.Second, 5*time.Millisecond)

	states := log.all()
	require.NotEmpty(t, states)
	assert.Equal(t, domain.CatalogLoading, states[0].Movies.Status)

	succeeded := false
	for _, st := range states {
		if succeeded {
			assert.Equal(t, domain.CatalogSucceeded, st.Movies.Status)
		}
		succeeded = succeeded || st.Movies.Status == domain.CatalogSucceeded
	}
	assert.True(t, succeeded)
	assert.Equal(t, 1, docs.ListenerCount())
}

func TestCatalog_SnapshotReplacesWholeList(t *testing.T) {
	ctx := context.Background()
	docs := setupDocs(t)
	addMovie(t, docs, "m1", "Heat")
	addMovie(t, docs, "m2", "Ronin")

	s := NewStore()
	c := NewCatalog(docs, s, logger.Discard())
	t.Cleanup(c.Stop)
	c.Start()
	require.Eventually(t, func() bool { return len(s.Snapshot().Movies.Data) == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, docs.Delete(ctx, remote.CollectionMovies, "m1"))
	require.Eventually(t, func() bool { return len(s.Snapshot().Movies.Data) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "Ronin", s.Snapshot().Movies.Data[0].Title)
}

func TestCatalog_ListenerErrorKeepsData(t *testing.T) {
	s := NewStore()
	c := NewCatalog(setupDocs(t), s, logger.Discard())

	c.onSnapshot([]*remote.Document{{ID: "m1", Exists: true, Fields: map[string]any{"title": "Heat"}}}, nil)
	c.onSnapshot(nil, errors.New("permission denied"))

	st := s.Snapshot()
	assert.Equal(t, domain.CatalogSucceeded, st.Movies.Status)
	require.Len(t, st.Movies.Data, 1)
	assert.Equal(t, "Heat", st.Movies.Data[0].Title)
}

func TestCatalog_StopReleasesListener(t *testing.T) {
	docs := setupDocs(t)
	c := NewCatalog(docs, NewStore(), logger.Discard())
	c.Start()
	require.Equal(t, 1, docs.ListenerCount())

	c.Stop()
	assert.Equal(t, 0, docs.ListenerCount())
}
