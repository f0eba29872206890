package livesync

import (
	"log/slog"
	"sync"

	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/remote"
)

// Catalog mirrors the movies collection. Every snapshot replaces the whole
// list; listener errors keep the last good list.
type Catalog struct {
	docs   remote.Documents
	store  *Store
	logger *slog.Logger

	once  sync.Once
	scope Scope
}

// NewCatalog creates a catalog synchronizer.
func NewCatalog(docs remote.Documents, store *Store, logger *slog.Logger) *Catalog {
	return &Catalog{docs: docs, store: store, logger: logger}
}

// Start subscribes to the collection. Later calls do nothing.
func (c *Catalog) Start() {
	c.once.Do(func() {
		c.store.Dispatch(SetMoviesLoading{})
		c.scope.Add(c.docs.SubscribeCollection(remote.CollectionMovies, c.onSnapshot))
	})
}

// Stop releases the subscription.
func (c *Catalog) Stop() {
	c.scope.Close()
}

func (c *Catalog) onSnapshot(docs []*remote.Document, err error) {
	if err != nil {
		c.logger.Error("catalog listener failed", "error", err)
		return
	}

	movies := make([]domain.CatalogEntry, 0, len(docs))
	for _, doc := range docs {
		movies = append(movies, domain.CatalogEntryFromFields(doc.ID, doc.Fields))
	}
	c.store.Dispatch(SetMovies{Movies: movies})
}
