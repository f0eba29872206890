// Package guard decides what a client may see at a route given its session.
package guard

import (
	"strings"

	"github.com/layarapp/layar-server/internal/domain"
)

// Requirement is what a route demands of the session.
type Requirement int

const (
	// Public routes render for everyone.
	Public Requirement = iota
	// SignedIn routes need a principal.
	SignedIn
	// AdminOnly routes need an admin principal.
	AdminOnly
)

// Outcome is the kind of decision.
type Outcome string

const (
	Wait     Outcome = "wait"
	Redirect Outcome = "redirect"
	Render   Outcome = "render"
)

// Well-known locations.
const (
	LoginPath = "/login"
	HomePath  = "/home"
	AdminPath = "/admin"
)

// WaitMessage is shown while the session resolves.
const WaitMessage = "Authenticating..."

// Decision is the guard's verdict for one navigation.
type Decision struct {
	Outcome  Outcome `json:"outcome"`
	Location string  `json:"location,omitempty"`
	// From is the location the client tried to reach, kept so sign-in can
	// send it back there.
	From    string `json:"from,omitempty"`
	Message string `json:"message,omitempty"`
}

// Decide applies req to session for a navigation to location.
func Decide(session domain.Session, req Requirement, location string) Decision {
	if req == Public {
		return Decision{Outcome: Render}
	}
	if session.Loading() {
		return Decision{Outcome: Wait, Message: WaitMessage}
	}
	if session.Principal == nil {
		return Decision{Outcome: Redirect, Location: LoginPath, From: location}
	}
	if req == AdminOnly && !session.Principal.IsAdmin() {
		return Decision{Outcome: Redirect, Location: HomePath}
	}
	return Decision{Outcome: Render}
}

// Route is a page the client can navigate to.
type Route struct {
	Pattern     string
	Requirement Requirement
	Disabled    bool
}

// Routes is the page table.
var Routes = []Route{
	{Pattern: LoginPath, Requirement: Public},
	{Pattern: "/register", Requirement: Public},
	{Pattern: "/", Requirement: SignedIn},
	{Pattern: HomePath, Requirement: SignedIn},
	{Pattern: AdminPath, Requirement: AdminOnly},
	{Pattern: "/movie/", Requirement: SignedIn, Disabled: true},
}

// Lookup finds the route for path. Disabled and unknown routes report false.
func Lookup(path string) (Route, bool) {
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	for _, r := range Routes {
		if strings.HasSuffix(r.Pattern, "/") && r.Pattern != "/" {
			if strings.HasPrefix(path, r.Pattern) {
				return r, !r.Disabled
			}
			continue
		}
		if r.Pattern == path {
			return r, !r.Disabled
		}
	}
	return Route{}, false
}

// Navigate looks up path and decides. Unknown or disabled paths yield
// ok == false.
func Navigate(session domain.Session, path string) (Decision, bool) {
	route, ok := Lookup(path)
	if !ok {
		return Decision{}, false
	}
	return Decide(session, route.Requirement, path), true
}
