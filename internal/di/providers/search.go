package providers

import (
	"github.com/samber/do/v2"

	"github.com/layarapp/layar-server/internal/config"
	"github.com/layarapp/layar-server/internal/logger"
	"github.com/layarapp/layar-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.SearchPath(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// SearchSyncerHandle wraps the catalog indexer with shutdown capability.
type SearchSyncerHandle struct {
	*search.Syncer
}

// Shutdown implements do.Shutdownable.
func (h *SearchSyncerHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideSearchSyncer starts keeping the index in step with the movies
// collection.
func ProvideSearchSyncer(i do.Injector) (*SearchSyncerHandle, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	docsHandle := do.MustInvoke[*DocumentsHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	syncer := search.NewSyncer(indexHandle.SearchIndex, docsHandle.Store, log.Component("search"))
	syncer.Start()

	return &SearchSyncerHandle{Syncer: syncer}, nil
}
