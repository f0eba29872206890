package docstore

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/layarapp/layar-server/internal/remote"
)

// listener is one registered subscription. Changes only mark it dirty; its
// goroutine reads a fresh snapshot before each delivery, so deliveries are
// serial, in commit order, and a burst of writes may arrive as one snapshot.
type listener struct {
	id         uint64
	collection string
	docID      string // empty for collection listeners
	notify     chan struct{}
	done       chan struct{}
	closed     atomic.Bool
	deliver    func(ctx context.Context)

	// deliverMu is held for the whole of a delivery.
	deliverMu sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
}

type hub struct {
	logger *slog.Logger

	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]*listener
	shutdown  bool
	wg        sync.WaitGroup
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		logger:    logger,
		listeners: make(map[uint64]*listener),
	}
}

func (h *hub) subscribe(collection, docID string, deliver func(ctx context.Context)) remote.Unsubscribe {
	l := &listener{
		collection: collection,
		docID:      docID,
		notify:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		deliver:    deliver,
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	// Initial snapshot.
	l.notify <- struct{}{}

	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		l.cancel()
		return func() {}
	}
	h.nextID++
	l.id = h.nextID
	h.listeners[l.id] = l
	h.wg.Add(1)
	total := len(h.listeners)
	h.mu.Unlock()

	go h.run(l)

	if h.logger != nil {
		h.logger.Debug("listener registered",
			slog.String("collection", collection),
			slog.String("doc_id", docID),
			slog.Int("total_listeners", total))
	}

	return remote.Once(func() { h.remove(l) })
}

func (h *hub) run(l *listener) {
	defer h.wg.Done()
	defer l.cancel()

	for {
		select {
		case <-l.done:
			return
		case <-l.notify:
		}
		l.deliverMu.Lock()
		if !l.closed.Load() {
			l.deliver(l.ctx)
		}
		l.deliverMu.Unlock()
	}
}

// stop cancels the listener and waits out a delivery in progress. Once it
// returns the callback is never entered again.
func (l *listener) stop() {
	l.closed.Store(true)
	l.cancel()
	close(l.done)
	l.deliverMu.Lock()
	//nolint:staticcheck // empty critical section waits for the running delivery
	l.deliverMu.Unlock()
}

// remove stops the listener. It must not be called from the listener's own
// callback.
func (h *hub) remove(l *listener) {
	h.mu.Lock()
	_, ok := h.listeners[l.id]
	delete(h.listeners, l.id)
	h.mu.Unlock()

	if ok {
		l.stop()
	}
}

// publish marks every listener watching collection/docID dirty.
func (h *hub) publish(collection, docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, l := range h.listeners {
		if l.collection != collection || (l.docID != "" && l.docID != docID) {
			continue
		}
		select {
		case l.notify <- struct{}{}:
		default:
			// Already dirty; the pending delivery will read this change.
		}
	}
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	h.shutdown = true
	listeners := h.listeners
	h.listeners = make(map[uint64]*listener)
	h.mu.Unlock()

	for _, l := range listeners {
		l.stop()
	}
	h.wg.Wait()

	if h.logger != nil {
		h.logger.Info("document listeners closed", slog.Int("count", len(listeners)))
	}
}
