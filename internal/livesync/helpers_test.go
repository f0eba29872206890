package livesync

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/layarapp/layar-server/internal/docstore"
	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/logger"
	"github.com/layarapp/layar-server/internal/remote"
	"github.com/layarapp/layar-server/internal/store"
)

func setupDocs(t *testing.T) *docstore.Store {
	t.Helper()

	db, err := store.New(filepath.Join(t.TempDir(), "docs.db"), nil)
	require.NoError(t, err)

	docs := docstore.New(db, logger.Discard())
	t.Cleanup(func() {
		docs.Close()
		_ = db.Close()
	})
	return docs
}

// fakeAuth delivers auth events synchronously on the caller's goroutine.
type fakeAuth struct {
	mu       sync.Mutex
	cb       func(*remote.Account)
	current  *remote.Account
	signOuts int
}

func (f *fakeAuth) SubscribeAuthState(cb func(*remote.Account)) remote.Unsubscribe {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
	return remote.Once(func() {
		f.mu.Lock()
		f.cb = nil
		f.mu.Unlock()
	})
}

func (f *fakeAuth) emit(acct *remote.Account) {
	f.mu.Lock()
	f.current = acct
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(acct)
	}
}

func (f *fakeAuth) Current() *remote.Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeAuth) SignIn(context.Context, string, string) (*remote.Account, error) {
	return nil, errors.New("not supported")
}

func (f *fakeAuth) SignInFederated(context.Context, string) (*remote.Account, error) {
	return nil, errors.New("not supported")
}

func (f *fakeAuth) SignUp(context.Context, string, string) (*remote.Account, error) {
	return nil, errors.New("not supported")
}

func (f *fakeAuth) SignOut(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signOuts++
	f.current = nil
	return nil
}

func (f *fakeAuth) Restore(_ context.Context, uid string) {
	if uid == "" {
		f.emit(nil)
		return
	}
	f.emit(&remote.Account{UID: uid})
}

func (f *fakeAuth) Adopt(acct *remote.Account) { f.emit(acct) }

func (f *fakeAuth) Close() {}

func (f *fakeAuth) signOutCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signOuts
}

// faultyDocs fails selected operations and passes the rest through.
type faultyDocs struct {
	remote.Documents
	getErr      error
	updateErrIn string
	blockGet    map[string]chan struct{}
	getCalled   chan string
}

func (f *faultyDocs) Get(ctx context.Context, collection, id string) (*remote.Document, error) {
	if f.getCalled != nil {
		f.getCalled <- id
	}
	if ch, ok := f.blockGet[id]; ok {
		<-ch
	}
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.Documents.Get(ctx, collection, id)
}

func (f *faultyDocs) Update(ctx context.Context, collection, id string, ops ...remote.FieldOp) error {
	if collection == f.updateErrIn {
		return errors.New("write rejected")
	}
	return f.Documents.Update(ctx, collection, id, ops...)
}

// stateLog records every snapshot a store publishes.
type stateLog struct {
	mu     sync.Mutex
	states []State
}

func watchStore(t *testing.T, s *Store) *stateLog {
	t.Helper()
	l := &stateLog{}
	t.Cleanup(s.Subscribe(func(st State) {
		l.mu.Lock()
		l.states = append(l.states, st)
		l.mu.Unlock()
	}))
	return l
}

func (l *stateLog) all() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func favoriteIDs(s *Store) []string {
	return s.Snapshot().Auth.FavoriteIDs.Sorted()
}

func addProfile(t *testing.T, docs remote.Documents, uid, username string, role domain.Role) {
	t.Helper()
	require.NoError(t, docs.Set(context.Background(), remote.CollectionUsers, uid, map[string]any{
		domain.FieldUsername: username,
		domain.FieldEmail:    username + "@example.com",
		domain.FieldRole:     string(role),
	}))
}

func addMovie(t *testing.T, docs remote.Documents, id, title string) {
	t.Helper()
	require.NoError(t, docs.Set(context.Background(), remote.CollectionMovies, id, map[string]any{
		domain.FieldTitle:          title,
		domain.FieldGenre:          []any{"Drama"},
		domain.FieldRating:         7.5,
		domain.FieldFavoritesCount: 0,
	}))
}

func favoritesCount(t *testing.T, docs remote.Documents, movieID string) int64 {
	t.Helper()
	doc, err := docs.Get(context.Background(), remote.CollectionMovies, movieID)
	require.NoError(t, err)
	return domain.CatalogEntryFromFields(movieID, doc.Fields).FavoritesCount
}
