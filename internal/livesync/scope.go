package livesync

import (
	"sync"

	"github.com/layarapp/layar-server/internal/remote"
)

// Scope collects disposers and runs each exactly once, newest first, when
// the scope closes. Disposers added after Close run immediately.
type Scope struct {
	mu        sync.Mutex
	disposers []remote.Unsubscribe
	closed    bool
}

// Add registers a disposer.
func (s *Scope) Add(fn remote.Unsubscribe) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.disposers = append(s.disposers, fn)
	s.mu.Unlock()
}

// Close runs every registered disposer. It is idempotent.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	disposers := s.disposers
	s.disposers = nil
	s.mu.Unlock()

	for i := len(disposers) - 1; i >= 0; i-- {
		disposers[i]()
	}
}

// KeyedSlot holds at most one resource, tagged with the key it was acquired
// for. Changing the key always releases the old resource before acquiring
// the new one. Callers serialize Rekey themselves.
type KeyedSlot struct {
	key     string
	release remote.Unsubscribe
}

// Key returns the current key, empty when the slot is empty.
func (k *KeyedSlot) Key() string {
	return k.key
}

// Rekey switches the slot to key. It reports whether anything changed.
// An empty key only releases.
func (k *KeyedSlot) Rekey(key string, acquire func(key string) remote.Unsubscribe) bool {
	if key == k.key {
		return false
	}
	if k.release != nil {
		k.release()
		k.release = nil
	}
	k.key = key
	if key != "" {
		k.release = acquire(key)
	}
	return true
}
