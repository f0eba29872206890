// Package livesync mirrors the document service into one client's
// application state: the session, the catalog and the favorite set, each
// kept current by a synchronizer, plus the favorite toggle that writes back.
package livesync

import (
	"context"
	"sync"

	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/remote"
)

// AuthState is the session half of the application state.
type AuthState struct {
	User        *domain.Principal
	FavoriteIDs domain.IDSet
	Loading     bool
}

// MoviesState is the catalog half of the application state.
type MoviesState struct {
	Data   []domain.CatalogEntry
	Status domain.CatalogStatus
}

// State is an immutable snapshot. Reducers replace fields wholesale and
// never modify a slice or set that a snapshot already references.
type State struct {
	Auth   AuthState
	Movies MoviesState
}

// InitialState is the state before any synchronizer has run.
func InitialState() State {
	return State{
		Auth:   AuthState{FavoriteIDs: domain.NewIDSet(), Loading: true},
		Movies: MoviesState{Data: []domain.CatalogEntry{}, Status: domain.CatalogIdle},
	}
}

// Session derives the view-layer session from the state.
func (s State) Session() domain.Session {
	if s.Auth.Loading {
		return domain.Session{Status: domain.SessionLoading}
	}
	return domain.Session{Principal: s.Auth.User, Status: domain.SessionReady}
}

// View derives the ViewState.
func (s State) View() domain.ViewState {
	return domain.ViewState{
		Session:       s.Session(),
		Movies:        s.Movies.Data,
		CatalogStatus: s.Movies.Status,
		FavoriteIDs:   s.Auth.FavoriteIDs.Sorted(),
	}
}

// Action is a state transition understood by reduce.
type Action interface {
	isAction()
}

// SetUser resolves the session to a principal.
type SetUser struct{ User *domain.Principal }

// SetFavorites replaces the favorite set.
type SetFavorites struct{ IDs domain.IDSet }

// ClearAuth resolves the session to signed out and drops the favorite set.
type ClearAuth struct{}

// SetMovies replaces the catalog and marks it loaded.
type SetMovies struct{ Movies []domain.CatalogEntry }

// SetMoviesLoading marks the catalog subscription as started.
type SetMoviesLoading struct{}

func (SetUser) isAction()          {}
func (SetFavorites) isAction()     {}
func (ClearAuth) isAction()        {}
func (SetMovies) isAction()        {}
func (SetMoviesLoading) isAction() {}

func reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetUser:
		s.Auth.User = a.User
		s.Auth.Loading = false
	case SetFavorites:
		if a.IDs == nil {
			a.IDs = domain.NewIDSet()
		}
		s.Auth.FavoriteIDs = a.IDs
	case ClearAuth:
		s.Auth.User = nil
		s.Auth.FavoriteIDs = domain.NewIDSet()
		s.Auth.Loading = false
	case SetMovies:
		if a.Movies == nil {
			a.Movies = []domain.CatalogEntry{}
		}
		s.Movies.Data = a.Movies
		s.Movies.Status = domain.CatalogSucceeded
	case SetMoviesLoading:
		// A loaded catalog never goes back to loading.
		if s.Movies.Status == domain.CatalogIdle {
			s.Movies.Status = domain.CatalogLoading
		}
	}
	return s
}

// Store holds the application state. Dispatches are serialized and every
// observer sees every resulting snapshot in dispatch order. Observers must
// not dispatch from inside their callback.
type Store struct {
	dispatchMu sync.Mutex

	mu        sync.RWMutex
	state     State
	observers map[int]func(State)
	nextID    int
}

// NewStore creates a store in the initial state.
func NewStore() *Store {
	return &Store{state: InitialState(), observers: make(map[int]func(State))}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies a to the state and notifies observers.
func (s *Store) Dispatch(a Action) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	s.state = reduce(s.state, a)
	next := s.state
	observers := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	for _, fn := range observers {
		fn(next)
	}
}

// Subscribe registers fn for every future snapshot.
func (s *Store) Subscribe(fn func(State)) remote.Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()

	oid := s.nextID
	s.nextID++
	s.observers[oid] = fn

	return remote.Once(func() {
		s.mu.Lock()
		delete(s.observers, oid)
		s.mu.Unlock()
	})
}

// Await blocks until pred holds for the current state or ctx ends, and
// returns the last state seen.
func (s *Store) Await(ctx context.Context, pred func(State) bool) (State, error) {
	changed := make(chan struct{}, 1)
	unsub := s.Subscribe(func(State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsub()

	for {
		st := s.Snapshot()
		if pred(st) {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-changed:
		}
	}
}
