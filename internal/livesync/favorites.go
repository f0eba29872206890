package livesync

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/remote"
)

// Favorites mirrors the signed-in principal's favorites document into the
// favorite set. It holds at most one document subscription, keyed by the
// principal id.
type Favorites struct {
	docs   remote.Documents
	store  *Store
	logger *slog.Logger

	mu   sync.Mutex
	slot KeyedSlot
	// owner mirrors slot.Key for listener callbacks, which cannot take mu.
	owner atomic.Value
}

// NewFavorites creates an idle favorites synchronizer.
func NewFavorites(docs remote.Documents, store *Store, logger *slog.Logger) *Favorites {
	return &Favorites{docs: docs, store: store, logger: logger}
}

// Follow switches the subscription to ownerID. The previous owner's
// subscription is released and its set cleared before the new one starts.
func (f *Favorites) Follow(ownerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if ownerID == f.slot.Key() {
		return
	}
	// Snapshots for the old owner are dropped from here on; Rekey then waits
	// for one already being applied.
	f.owner.Store(ownerID)
	f.slot.Rekey(ownerID, func(owner string) remote.Unsubscribe {
		f.store.Dispatch(SetFavorites{IDs: domain.NewIDSet()})
		return f.docs.SubscribeDocument(remote.CollectionFavorites, owner, func(doc *remote.Document, err error) {
			f.apply(owner, doc, err)
		})
	})
}

// Release drops the subscription, if any.
func (f *Favorites) Release() {
	f.Follow("")
}

// Owner returns the principal currently followed.
func (f *Favorites) Owner() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slot.Key()
}

// apply drops a snapshot for a previous owner once Follow has moved on.
// Follow releases the old subscription while holding mu, so apply must not
// take it.
func (f *Favorites) apply(owner string, doc *remote.Document, err error) {
	if cur, _ := f.owner.Load().(string); cur != owner {
		f.logger.Debug("dropping favorites snapshot for previous owner", "owner", owner)
		return
	}
	if err != nil {
		f.logger.Error("favorites listener failed", "owner", owner, "error", err)
		return
	}

	if doc == nil || !doc.Exists {
		f.store.Dispatch(SetFavorites{IDs: domain.NewIDSet()})
		return
	}
	rec := domain.FavoritesFromFields(owner, doc.Fields)
	f.store.Dispatch(SetFavorites{IDs: domain.NewIDSet(rec.MovieIDs...)})
}
