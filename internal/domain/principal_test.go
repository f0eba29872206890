package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrincipalFromProfile(t *testing.T) {
	p := PrincipalFromProfile("uid-1", map[string]any{
		"username": "alice",
		"email":    "alice@x.com",
		"role":     "admin",
	})

	assert.Equal(t, "uid-1", p.ID)
	assert.Equal(t, "alice", p.Username)
	assert.True(t, p.IsAdmin())
}

func TestPrincipalFromProfile_UnknownRoleIsUser(t *testing.T) {
	for _, role := range []any{"superuser", nil, 3.0} {
		p := PrincipalFromProfile("uid", map[string]any{"role": role})
		assert.Equal(t, RoleUser, p.Role)
		assert.False(t, p.IsAdmin())
	}

	var nobody *Principal
	assert.False(t, nobody.IsAdmin())
}

func TestIdentifierHelpers(t *testing.T) {
	assert.Equal(t, "alice", NormalizeIdentifier("  Alice "))
	assert.True(t, IsEmail("alice@x.com"))
	assert.False(t, IsEmail("alice"))
	assert.Equal(t, "alice", EmailLocalPart("alice@x.com"))
}

func TestSession(t *testing.T) {
	assert.True(t, Session{Status: SessionLoading}.Loading())
	assert.False(t, Session{Status: SessionReady}.SignedIn())
	assert.True(t, Session{Status: SessionReady, Principal: &Principal{ID: "u"}}.SignedIn())
}

func TestFavoritesFromFields(t *testing.T) {
	rec := FavoritesFromFields("u1", map[string]any{"movieIds": []any{"m1", "m2", "m1", 5.0}})
	assert.Equal(t, []string{"m1", "m2"}, rec.MovieIDs)

	assert.Empty(t, FavoritesFromFields("u1", map[string]any{}).MovieIDs)

	set := NewIDSet(rec.MovieIDs...)
	assert.True(t, set.Has("m2"))
	assert.Equal(t, []string{"m1", "m2"}, set.Sorted())
}
