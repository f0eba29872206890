// Package replicas keeps one live replica per browser client, keyed by the
// client id carried in its token, and reaps the ones that went quiet.
package replicas

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/layarapp/layar-server/internal/auth"
	"github.com/layarapp/layar-server/internal/domain"
	domainerrors "github.com/layarapp/layar-server/internal/errors"
	"github.com/layarapp/layar-server/internal/id"
	"github.com/layarapp/layar-server/internal/identity"
	"github.com/layarapp/layar-server/internal/livesync"
	"github.com/layarapp/layar-server/internal/remote"
	"github.com/layarapp/layar-server/internal/sse"
)

// Registry owns the live replicas.
type Registry struct {
	provider *identity.Provider
	docs     remote.Documents
	tokens   *auth.TokenService
	events   *sse.Manager
	logger   *slog.Logger
	idle     time.Duration

	mu       sync.Mutex
	replicas map[string]*entry
	closed   bool
}

type entry struct {
	replica *livesync.Replica
	unsub   remote.Unsubscribe
}

// New creates a registry. Replicas idle for longer than idle are reaped.
func New(provider *identity.Provider, docs remote.Documents, tokens *auth.TokenService, events *sse.Manager, idle time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		provider: provider,
		docs:     docs,
		tokens:   tokens,
		events:   events,
		logger:   logger,
		idle:     idle,
		replicas: make(map[string]*entry),
	}
}

// Create starts a signed-out replica for a new client and returns its token.
func (r *Registry) Create(ctx context.Context) (*livesync.Replica, string, error) {
	clientID, err := id.Generate("cli")
	if err != nil {
		return nil, "", domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to allocate client id")
	}

	replica, err := r.start(ctx, clientID, "")
	if err != nil {
		return nil, "", err
	}

	token, err := r.tokens.Issue(clientID, "")
	if err != nil {
		return nil, "", domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to issue client token")
	}
	return replica, token, nil
}

// Resolve returns the replica a token belongs to. A token whose replica was
// reaped, or that outlived a restart, gets a fresh replica restored to the
// uid it carries.
func (r *Registry) Resolve(ctx context.Context, token string) (*livesync.Replica, error) {
	claims, err := r.tokens.Verify(token)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUnauthorized, "invalid client token")
	}

	r.mu.Lock()
	e, ok := r.replicas[claims.ClientID]
	r.mu.Unlock()
	if ok {
		e.replica.Touch()
		return e.replica, nil
	}

	r.logger.Debug("recreating replica", "client_id", claims.ClientID, "signed_in", claims.UID != "")
	return r.start(ctx, claims.ClientID, claims.UID)
}

// Reissue returns a token for replica bound to its current account, so a
// recreated replica restores the same sign-in.
func (r *Registry) Reissue(replica *livesync.Replica) (string, error) {
	uid := ""
	if acct := replica.Auth().Current(); acct != nil {
		uid = acct.UID
	}
	token, err := r.tokens.Issue(replica.ID(), uid)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to issue client token")
	}
	return token, nil
}

// TokenDuration is the lifetime of issued client tokens.
func (r *Registry) TokenDuration() time.Duration {
	return r.tokens.Duration()
}

func (r *Registry) start(ctx context.Context, clientID, uid string) (*livesync.Replica, error) {
	client := identity.NewClient(r.provider, r.logger.With("client_id", clientID))
	replica := livesync.NewReplica(clientID, client, r.docs, r.logger)
	unsub := replica.Subscribe(func(view domain.ViewState) {
		r.events.Emit(sse.NewViewUpdatedEvent(clientID, view))
	})

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		unsub()
		replica.Close()
		return nil, domainerrors.Internal("replica registry is closed")
	}
	if existing, ok := r.replicas[clientID]; ok {
		r.mu.Unlock()
		unsub()
		replica.Close()
		existing.replica.Touch()
		return existing.replica, nil
	}
	r.replicas[clientID] = &entry{replica: replica, unsub: unsub}
	total := len(r.replicas)
	r.mu.Unlock()

	replica.Start(ctx, uid)
	r.logger.Info("replica started", "client_id", clientID, "total", total)
	return replica, nil
}

// Remove closes and forgets a replica.
func (r *Registry) Remove(clientID string) {
	r.mu.Lock()
	e, ok := r.replicas[clientID]
	delete(r.replicas, clientID)
	r.mu.Unlock()
	if !ok {
		return
	}
	r.stop(clientID, e)
}

func (r *Registry) stop(clientID string, e *entry) {
	e.unsub()
	e.replica.Close()
	r.events.DisconnectReplica(clientID)
}

// Len returns the number of live replicas.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.replicas)
}

// Reap closes replicas idle for longer than the idle timeout and returns
// how many it closed.
func (r *Registry) Reap(now time.Time) int {
	stale := map[string]*entry{}
	r.mu.Lock()
	for clientID, e := range r.replicas {
		if e.replica.IdleSince(now) > r.idle {
			stale[clientID] = e
			delete(r.replicas, clientID)
		}
	}
	r.mu.Unlock()

	for clientID, e := range stale {
		r.stop(clientID, e)
	}
	if len(stale) > 0 {
		r.logger.Info("reaped idle replicas", "count", len(stale))
	}
	return len(stale)
}

// Run reaps idle replicas every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Reap(now)
		}
	}
}

// Close stops every replica. Later Resolve and Create calls fail.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.replicas
	r.replicas = make(map[string]*entry)
	r.closed = true
	r.mu.Unlock()

	for clientID, e := range all {
		r.stop(clientID, e)
	}
}
