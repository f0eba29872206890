package domain

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Role represents a principal's permission level.
type Role string

const (
	// RoleUser is the default role given at sign-up.
	RoleUser Role = "user"
	// RoleAdmin grants access to the catalog administration surface.
	RoleAdmin Role = "admin"
)

// Principal is an authenticated identity merged with its profile document.
type Principal struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// IsAdmin reports whether the principal may use the admin surface.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Profile document field names in the users collection.
const (
	FieldUsername  = "username"
	FieldEmail     = "email"
	FieldRole      = "role"
	FieldPhotoURL  = "photoURL"
	FieldCreatedAt = "createdAt"
)

// PrincipalFromProfile merges an account id with the fields of its profile
// document. A missing or unknown role falls back to RoleUser.
func PrincipalFromProfile(uid string, fields map[string]any) *Principal {
	p := &Principal{
		ID:       uid,
		Email:    stringField(fields, FieldEmail),
		Username: stringField(fields, FieldUsername),
		Role:     Role(stringField(fields, FieldRole)),
		PhotoURL: stringField(fields, FieldPhotoURL),
	}
	if p.Role != RoleAdmin {
		p.Role = RoleUser
	}
	return p
}

// NormalizeIdentifier lowercases and trims a sign-in identifier or username.
func NormalizeIdentifier(s string) string {
	return norm.NFC.String(strings.ToLower(strings.TrimSpace(s)))
}

// IsEmail reports whether a sign-in identifier should be treated as an
// email address rather than a username.
func IsEmail(identifier string) bool {
	return strings.Contains(identifier, "@")
}

// EmailLocalPart returns the part of an email before the @.
func EmailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
