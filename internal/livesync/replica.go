package livesync

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/remote"
)

// ClientAuth is an auth instance owned by a single replica.
type ClientAuth interface {
	remote.Auth
	Restore(ctx context.Context, uid string)
	Adopt(acct *remote.Account)
	Close()
}

// Replica is one browser client's live view of the service: its own auth
// instance, application state and synchronizers.
type Replica struct {
	id     string
	auth   ClientAuth
	store  *Store
	logger *slog.Logger

	session   *Session
	catalog   *Catalog
	favorites *Favorites
	toggle    *Toggle

	toggleMu sync.Mutex

	lastSeen atomic.Int64
	now      func() time.Time

	closeOnce sync.Once
}

// NewReplica wires the synchronizers for one client. Nothing runs until Start.
func NewReplica(id string, auth ClientAuth, docs remote.Documents, logger *slog.Logger) *Replica {
	logger = logger.With("client_id", id)
	store := NewStore()
	favorites := NewFavorites(docs, store, logger.With("component", "favorites"))

	r := &Replica{
		id:        id,
		auth:      auth,
		store:     store,
		logger:    logger,
		favorites: favorites,
		session:   NewSession(auth, docs, store, favorites, logger.With("component", "session")),
		catalog:   NewCatalog(docs, store, logger.With("component", "catalog")),
		toggle:    NewToggle(docs, store, logger.With("component", "toggle")),
		now:       time.Now,
	}
	r.Touch()
	return r
}

// Start subscribes the catalog and session synchronizers, then restores the
// auth instance from uid (empty for a signed-out client).
func (r *Replica) Start(ctx context.Context, uid string) {
	r.catalog.Start()
	r.session.Start()
	r.auth.Restore(ctx, uid)
}

// ID returns the client id.
func (r *Replica) ID() string { return r.id }

// Auth returns the replica's auth instance.
func (r *Replica) Auth() ClientAuth { return r.auth }

// Store returns the replica's application state.
func (r *Replica) Store() *Store { return r.store }

// View returns the current ViewState.
func (r *Replica) View() domain.ViewState {
	return r.store.Snapshot().View()
}

// Session returns the current session.
func (r *Replica) Session() domain.Session {
	return r.store.Snapshot().Session()
}

// Subscribe calls fn with the ViewState after every state change.
func (r *Replica) Subscribe(fn func(domain.ViewState)) remote.Unsubscribe {
	return r.store.Subscribe(func(s State) { fn(s.View()) })
}

// ToggleFavorite runs the favorite toggle for the signed-in principal, then
// waits until the favorites listener has delivered the new membership, so the
// next toggle reads it. Toggles on one replica run one at a time. Local state
// is still only changed by the listener. ctx bounds the wait; when it ends
// first the toggle result is returned anyway.
func (r *Replica) ToggleFavorite(ctx context.Context, movieID string) (bool, error) {
	r.toggleMu.Lock()
	defer r.toggleMu.Unlock()

	uid := ""
	if u := r.store.Snapshot().Auth.User; u != nil {
		uid = u.ID
	}

	added, err := r.toggle.ToggleFavorite(ctx, movieID)
	if err != nil {
		return added, err
	}

	_, err = r.store.Await(ctx, func(s State) bool {
		if s.Auth.User == nil || s.Auth.User.ID != uid {
			return true
		}
		return s.Auth.FavoriteIDs.Has(movieID) == added
	})
	if err != nil {
		r.logger.Warn("favorite change not yet delivered", "movie_id", movieID, "added", added, "error", err)
	}
	return added, nil
}

// AwaitSession waits until the session is resolved and matches uid: signed
// in as uid, or signed out when uid is empty.
func (r *Replica) AwaitSession(ctx context.Context, uid string) (domain.Session, error) {
	st, err := r.store.Await(ctx, func(s State) bool {
		if s.Auth.Loading {
			return false
		}
		if uid == "" {
			return s.Auth.User == nil
		}
		return s.Auth.User != nil && s.Auth.User.ID == uid
	})
	return st.Session(), err
}

// Touch records client activity.
func (r *Replica) Touch() {
	r.lastSeen.Store(r.now().UnixNano())
}

// IdleSince reports how long the client has been inactive.
func (r *Replica) IdleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, r.lastSeen.Load()))
}

// Close tears down every subscription the replica holds.
func (r *Replica) Close() {
	r.closeOnce.Do(func() {
		r.session.Stop()
		r.catalog.Stop()
		r.auth.Close()
		r.logger.Debug("replica closed")
	})
}
