package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/layarapp/layar-server/internal/config"
	"github.com/layarapp/layar-server/internal/docstore"
	"github.com/layarapp/layar-server/internal/logger"
	"github.com/layarapp/layar-server/internal/sse"
	"github.com/layarapp/layar-server/internal/store"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the badger store. Each project gets its own
// database directory.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.StorePath()
	db, err := store.New(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// DocumentsHandle wraps the document store with shutdown capability.
type DocumentsHandle struct {
	*docstore.Store
}

// Shutdown implements do.Shutdownable.
func (h *DocumentsHandle) Shutdown() error {
	h.Close()
	return nil
}

// ProvideDocuments provides the document collections on top of the store.
func ProvideDocuments(i do.Injector) (*DocumentsHandle, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return &DocumentsHandle{Store: docstore.New(storeHandle.Store, log.Component("docstore"))}, nil
}
