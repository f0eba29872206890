package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/layarapp/layar-server/internal/domain"
)

var (
	loading  = domain.Session{Status: domain.SessionLoading}
	anon     = domain.Session{Status: domain.SessionReady}
	member   = domain.Session{Status: domain.SessionReady, Principal: &domain.Principal{ID: "u1", Role: domain.RoleUser}}
	operator = domain.Session{Status: domain.SessionReady, Principal: &domain.Principal{ID: "u2", Role: domain.RoleAdmin}}
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		session  domain.Session
		req      Requirement
		location string
		want     Decision
	}{
		{"loading waits", loading, SignedIn, "/home", Decision{Outcome: Wait, Message: WaitMessage}},
		{"loading admin waits", loading, AdminOnly, "/admin", Decision{Outcome: Wait, Message: WaitMessage}},
		{"anonymous redirected to login", anon, SignedIn, "/home", Decision{Outcome: Redirect, Location: LoginPath, From: "/home"}},
		{"anonymous admin redirected to login", anon, AdminOnly, "/admin", Decision{Outcome: Redirect, Location: LoginPath, From: "/admin"}},
		{"member renders home", member, SignedIn, "/home", Decision{Outcome: Render}},
		{"member bounced from admin", member, AdminOnly, "/admin", Decision{Outcome: Redirect, Location: HomePath}},
		{"admin renders admin", operator, AdminOnly, "/admin", Decision{Outcome: Render}},
		{"admin renders home", operator, SignedIn, "/home", Decision{Outcome: Render}},
		{"public always renders", loading, Public, "/login", Decision{Outcome: Render}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.session, tt.req, tt.location))
		})
	}
}

func TestNavigate_NonAdminKeepsCatalogRoute(t *testing.T) {
	d, ok := Navigate(member, "/admin")
	assert.True(t, ok)
	assert.Equal(t, HomePath, d.Location)

	d, ok = Navigate(member, d.Location)
	assert.True(t, ok)
	assert.Equal(t, Render, d.Outcome)
}

func TestLookup(t *testing.T) {
	tests := []struct {
		path   string
		want   Requirement
		wantOK bool
	}{
		{"/", SignedIn, true},
		{"", SignedIn, true},
		{"/home", SignedIn, true},
		{"/home/", SignedIn, true},
		{"/admin", AdminOnly, true},
		{"/login", Public, true},
		{"/register", Public, true},
		{"/movie/m1", SignedIn, false},
		{"/nope", Public, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r, ok := Lookup(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, r.Requirement)
		})
	}
}
