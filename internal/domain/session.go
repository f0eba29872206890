package domain

// SessionStatus is the resolution state of the signed-in session.
type SessionStatus string

const (
	// SessionLoading means the auth state has not been resolved yet.
	SessionLoading SessionStatus = "loading"
	// SessionReady means resolution finished, with or without a principal.
	SessionReady SessionStatus = "ready"
)

// Session is the resolved authentication state seen by the view layer.
// A ready session carries a Principal only when its profile was fetched.
type Session struct {
	Principal *Principal    `json:"principal,omitempty"`
	Status    SessionStatus `json:"status"`
}

// Loading reports whether the session is still resolving.
func (s Session) Loading() bool {
	return s.Status == SessionLoading
}

// SignedIn reports whether a principal is present.
func (s Session) SignedIn() bool {
	return s.Status == SessionReady && s.Principal != nil
}
