package livesync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layarapp/layar-server/internal/domain"
)

func TestReduce_InitialState(t *testing.T) {
	st := InitialState()
	assert.True(t, st.Auth.Loading)
	assert.Equal(t, domain.CatalogIdle, st.Movies.Status)
	assert.Equal(t, domain.SessionLoading, st.Session().Status)
	assert.Empty(t, st.View().FavoriteIDs)
}

func TestReduce_AuthActions(t *testing.T) {
	alice := &domain.Principal{ID: "u1", Username: "alice", Role: domain.RoleUser}

	st := reduce(InitialState(), SetUser{User: alice})
	assert.False(t, st.Auth.Loading)
	assert.True(t, st.Session().SignedIn())

	st = reduce(st, SetFavorites{IDs: domain.NewIDSet("m2", "m1")})
	assert.Equal(t, []string{"m1", "m2"}, st.View().FavoriteIDs)

	st = reduce(st, ClearAuth{})
	assert.Nil(t, st.Auth.User)
	assert.Empty(t, st.Auth.FavoriteIDs)
	assert.Equal(t, domain.Session{Status: domain.SessionReady}, st.Session())
}

func TestReduce_CatalogNeverReturnsToLoading(t *testing.T) {
	st := reduce(InitialState(), SetMoviesLoading{})
	assert.Equal(t, domain.CatalogLoading, st.Movies.Status)

	st = reduce(st, SetMovies{Movies: []domain.CatalogEntry{{ID: "m1"}}})
	assert.Equal(t, domain.CatalogSucceeded, st.Movies.Status)

	st = reduce(st, SetMoviesLoading{})
	assert.Equal(t, domain.CatalogSucceeded, st.Movies.Status)
	assert.Len(t, st.Movies.Data, 1)
}

func TestReduce_DoesNotAlterPreviousSnapshot(t *testing.T) {
	before := reduce(InitialState(), SetFavorites{IDs: domain.NewIDSet("m1")})
	after := reduce(before, SetFavorites{IDs: domain.NewIDSet("m2")})

	assert.True(t, before.Auth.FavoriteIDs.Has("m1"))
	assert.False(t, after.Auth.FavoriteIDs.Has("m1"))
}

func TestStore_ObserversSeeEveryDispatchInOrder(t *testing.T) {
	s := NewStore()
	log := watchStore(t, s)

	s.Dispatch(SetMoviesLoading{})
	s.Dispatch(SetMovies{})
	s.Dispatch(ClearAuth{})

	states := log.all()
	require.Len(t, states, 3)
	assert.Equal(t, domain.CatalogLoading, states[0].Movies.Status)
	assert.Equal(t, domain.CatalogSucceeded, states[1].Movies.Status)
	assert.False(t, states[2].Auth.Loading)
}

func TestStore_UnsubscribeStopsNotifications(t *testing.T) {
	s := NewStore()
	calls := 0
	unsub := s.Subscribe(func(State) { calls++ })

	s.Dispatch(ClearAuth{})
	unsub()
	unsub()
	s.Dispatch(ClearAuth{})

	assert.Equal(t, 1, calls)
}

func TestStore_Await(t *testing.T) {
	s := NewStore()

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.Dispatch(SetUser{User: &domain.Principal{ID: "u1"}})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	st, err := s.Await(ctx, func(st State) bool { return st.Auth.User != nil })
	require.NoError(t, err)
	assert.Equal(t, "u1", st.Auth.User.ID)

	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	_, err = s.Await(short, func(st State) bool { return st.Auth.User == nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
