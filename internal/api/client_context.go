package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/layarapp/layar-server/internal/domain"
	domainerrors "github.com/layarapp/layar-server/internal/errors"
	"github.com/layarapp/layar-server/internal/livesync"
)

// ClientCookie carries the client token for browser requests.
const ClientCookie = "layar_client"

type ctxKey string

const replicaKey ctxKey = "replica"

func withReplica(ctx context.Context, r *livesync.Replica) context.Context {
	return context.WithValue(ctx, replicaKey, r)
}

// replicaFrom returns the replica the request's client token resolved to.
func replicaFrom(ctx context.Context) (*livesync.Replica, error) {
	r, ok := ctx.Value(replicaKey).(*livesync.Replica)
	if !ok || r == nil {
		return nil, huma.Error401Unauthorized("Client token required")
	}
	return r, nil
}

// clientToken reads the token from the Authorization header, falling back
// to the client cookie.
func clientToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		scheme, token, ok := strings.Cut(authHeader, " ")
		if ok && scheme == "Bearer" {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(ClientCookie); err == nil {
		return c.Value
	}
	return ""
}

// clientMiddleware resolves the client token to its replica. Requests
// without a usable token continue without one; handlers that need a
// replica reject them.
func (s *Server) clientMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := clientToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		replica, err := s.registry.Resolve(r.Context(), token)
		if err != nil {
			s.logger.Debug("client token rejected", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withReplica(r.Context(), replica)))
	})
}

// settledSession waits briefly for the replica's session to resolve. A
// session still loading after the settle timeout is returned as is.
func (s *Server) settledSession(ctx context.Context, replica *livesync.Replica) domain.Session {
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.SettleTimeout)
	defer cancel()

	st, err := replica.Store().Await(waitCtx, func(st livesync.State) bool {
		return !st.Auth.Loading
	})
	if err != nil {
		return replica.Session()
	}
	return st.Session()
}

// requireSignedIn returns the replica and principal of a signed-in client.
func (s *Server) requireSignedIn(ctx context.Context) (*livesync.Replica, *domain.Principal, error) {
	replica, err := replicaFrom(ctx)
	if err != nil {
		return nil, nil, err
	}
	session := s.settledSession(ctx, replica)
	if session.Loading() {
		return nil, nil, huma.Error503ServiceUnavailable("Session is still resolving")
	}
	if !session.SignedIn() {
		return nil, nil, domainerrors.ErrNotSignedIn
	}
	return replica, session.Principal, nil
}

// requireAdmin is requireSignedIn for admin principals.
func (s *Server) requireAdmin(ctx context.Context) (*livesync.Replica, error) {
	replica, principal, err := s.requireSignedIn(ctx)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() {
		return nil, domainerrors.Forbidden("Admin access required")
	}
	return replica, nil
}

// awaitSignIn waits until replica reflects uid ("" for signed out). It also
// stops when the auth instance has moved away from uid, which happens when
// the session signs out an account without a profile.
func (s *Server) awaitSignIn(ctx context.Context, replica *livesync.Replica, uid string) domain.Session {
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.SettleTimeout)
	defer cancel()

	st, err := replica.Store().Await(waitCtx, func(st livesync.State) bool {
		if st.Auth.Loading {
			return false
		}
		if uid == "" {
			return st.Auth.User == nil
		}
		if st.Auth.User != nil && st.Auth.User.ID == uid {
			return true
		}
		current := replica.Auth().Current()
		return current == nil || current.UID != uid
	})
	if err != nil {
		s.logger.Warn("session did not settle", "client_id", replica.ID(), "error", err)
	}
	return st.Session()
}

func (s *Server) clientCookie(token string) http.Cookie {
	return http.Cookie{
		Name:     ClientCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.registry.TokenDuration() / time.Second),
	}
}
