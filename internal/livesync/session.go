package livesync

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/remote"
)

// Session resolves auth-state changes into the session state: a signed-in
// account becomes a principal only once its profile has been read, and an
// account without a profile is signed out.
type Session struct {
	auth      remote.Auth
	docs      remote.Documents
	store     *Store
	favorites *Favorites
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// mu serializes resolutions; generation identifies the latest auth event.
	mu         sync.Mutex
	generation atomic.Uint64

	once  sync.Once
	scope Scope
}

// NewSession creates a session synchronizer.
func NewSession(auth remote.Auth, docs remote.Documents, store *Store, favorites *Favorites, logger *slog.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		auth:      auth,
		docs:      docs,
		store:     store,
		favorites: favorites,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the auth-state subscription. Later calls do nothing.
func (s *Session) Start() {
	s.once.Do(func() {
		s.scope.Add(s.auth.SubscribeAuthState(s.onAuthChange))
	})
}

// Stop releases the auth subscription and the favorites subscription.
func (s *Session) Stop() {
	s.cancel()
	s.scope.Close()
	s.mu.Lock()
	s.favorites.Release()
	s.mu.Unlock()
}

func (s *Session) onAuthChange(acct *remote.Account) {
	gen := s.generation.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx.Err() != nil {
		return
	}

	if acct == nil {
		s.signedOut()
		return
	}

	principal := s.resolve(acct)
	if gen != s.generation.Load() {
		s.logger.Debug("discarding stale session resolution", "uid", acct.UID)
		return
	}

	if principal == nil {
		s.ghost(acct)
		return
	}

	s.favorites.Follow(principal.ID)
	s.store.Dispatch(SetUser{User: principal})
}

// resolve reads the profile for acct. A fetch error counts as no profile.
func (s *Session) resolve(acct *remote.Account) *domain.Principal {
	doc, err := s.docs.Get(s.ctx, remote.CollectionUsers, acct.UID)
	if err != nil {
		s.logger.Error("profile fetch failed", "uid", acct.UID, "error", err)
		return nil
	}
	if !doc.Exists {
		return nil
	}

	p := domain.PrincipalFromProfile(acct.UID, doc.Fields)
	if p.Email == "" {
		p.Email = acct.Email
	}
	if p.PhotoURL == "" {
		p.PhotoURL = acct.PhotoURL
	}
	return p
}

// ghost signs out an account that has no profile and clears the session
// before any other transition can run.
func (s *Session) ghost(acct *remote.Account) {
	s.logger.Warn("signed-in account has no profile, signing out", "uid", acct.UID)
	if err := s.auth.SignOut(s.ctx); err != nil {
		s.logger.Error("forced sign-out failed", "uid", acct.UID, "error", err)
	}
	s.signedOut()
}

func (s *Session) signedOut() {
	s.favorites.Release()
	s.store.Dispatch(ClearAuth{})
}
