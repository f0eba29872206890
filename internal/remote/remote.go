// Package remote defines the capabilities the synchronizers consume from the
// document service: authentication state and a document store with
// real-time listeners. Implementations live in identity and docstore.
package remote

import (
	"context"
	"sync"
	"time"

	domainerrors "github.com/layarapp/layar-server/internal/errors"
)

// Collections persisted by the service.
const (
	CollectionUsers     = "users"
	CollectionMovies    = "movies"
	CollectionFavorites = "userFavorites"
)

// Unsubscribe releases a listener. Calling it more than once is a no-op.
type Unsubscribe func()

// Once wraps fn so repeated calls run it a single time.
func Once(fn func()) Unsubscribe {
	var once sync.Once
	return func() { once.Do(fn) }
}

// Account is an authenticated identity as reported by the auth provider.
// It carries no profile data; that lives in the users collection.
type Account struct {
	UID      string `json:"uid"`
	Email    string `json:"email"`
	PhotoURL string `json:"photoURL,omitempty"`
	Provider string `json:"provider"`
}

// Auth is one client's view of the authentication provider.
type Auth interface {
	// SubscribeAuthState calls cb with the current account (nil when signed
	// out) once the client has restored, then on every change.
	SubscribeAuthState(cb func(*Account)) Unsubscribe
	Current() *Account
	SignIn(ctx context.Context, email, password string) (*Account, error)
	SignInFederated(ctx context.Context, code string) (*Account, error)
	SignUp(ctx context.Context, email, password string) (*Account, error)
	SignOut(ctx context.Context) error
}

// Document is a snapshot of one stored document. A snapshot of an absent
// document has Exists false and nil Fields.
type Document struct {
	Collection string         `json:"collection"`
	ID         string         `json:"id"`
	Exists     bool           `json:"exists"`
	Fields     map[string]any `json:"fields,omitempty"`
	UpdateTime time.Time      `json:"updateTime"`
}

// Documents is the document store capability.
type Documents interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	Set(ctx context.Context, collection, id string, fields map[string]any) error
	Add(ctx context.Context, collection string, fields map[string]any) (string, error)
	// Update applies ops atomically; it fails with ErrNotFound when the
	// document does not exist.
	Update(ctx context.Context, collection, id string, ops ...FieldOp) error
	Delete(ctx context.Context, collection, id string) error
	List(ctx context.Context, collection string) ([]*Document, error)
	Query(ctx context.Context, collection, field string, value any) ([]*Document, error)
	SubscribeDocument(collection, id string, cb func(*Document, error)) Unsubscribe
	SubscribeCollection(collection string, cb func([]*Document, error)) Unsubscribe
}

// ErrNotFound is returned by Update when the target document is absent.
var ErrNotFound = domainerrors.NotFound("document not found")

// IsNotFound reports whether err means the target document is absent.
func IsNotFound(err error) bool {
	return domainerrors.Is(err, domainerrors.ErrNotFound)
}
