package search

import (
	"context"
	"log/slog"
	"sync"

	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/remote"
)

// Syncer keeps the index equal to the movies collection by following its
// snapshots: every snapshot upserts all movies and deletes the ids that are
// no longer present.
type Syncer struct {
	index  *SearchIndex
	docs   remote.Documents
	logger *slog.Logger

	mu      sync.Mutex
	indexed map[string]struct{}
	primed  bool
	synced  chan struct{}
	unsub   remote.Unsubscribe
}

// NewSyncer creates a syncer. Call Start to begin following the collection.
func NewSyncer(index *SearchIndex, docs remote.Documents, logger *slog.Logger) *Syncer {
	return &Syncer{
		index:   index,
		docs:    docs,
		logger:  logger,
		indexed: make(map[string]struct{}),
		synced:  make(chan struct{}),
	}
}

// Start subscribes to the movies collection.
func (s *Syncer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsub != nil {
		return
	}
	s.unsub = s.docs.SubscribeCollection(remote.CollectionMovies, s.onSnapshot)
}

// Synced is closed once the first snapshot has been indexed.
func (s *Syncer) Synced() <-chan struct{} {
	return s.synced
}

// Stop releases the subscription.
func (s *Syncer) Stop() {
	s.mu.Lock()
	unsub := s.unsub
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *Syncer) onSnapshot(docs []*remote.Document, err error) {
	if err != nil {
		s.logger.Error("search sync listener failed", "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.primed {
		// Pick up whatever a previous run left in the index.
		ids, err := s.index.AllIDs(context.Background())
		if err != nil {
			s.logger.Error("failed to read indexed ids", "error", err)
		}
		for _, id := range ids {
			s.indexed[id] = struct{}{}
		}
	}

	batch := make([]*MovieDocument, 0, len(docs))
	present := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		present[doc.ID] = struct{}{}
		batch = append(batch, DocumentFromEntry(domain.CatalogEntryFromFields(doc.ID, doc.Fields)))
	}

	if err := s.index.IndexDocuments(batch); err != nil {
		s.logger.Error("failed to index catalog snapshot", "count", len(batch), "error", err)
		return
	}

	var stale []string
	for id := range s.indexed {
		if _, ok := present[id]; !ok {
			stale = append(stale, id)
		}
	}
	if len(stale) > 0 {
		if err := s.index.DeleteDocuments(stale); err != nil {
			s.logger.Error("failed to remove deleted movies from index", "count", len(stale), "error", err)
			return
		}
	}

	s.indexed = present
	if !s.primed {
		s.primed = true
		close(s.synced)
	}
	s.logger.Debug("search index synced", "movies", len(present), "removed", len(stale))
}
