// Package id generates identifiers for accounts, clients and documents.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// documentAlphabet matches the alphanumeric auto-ids documents get when added
// without an explicit id.
const (
	documentAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	documentIDLength = 20
)

// Generate creates a prefixed unique ID, e.g. "cli-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Document returns a 20 character alphanumeric document id.
func Document() (string, error) {
	id, err := gonanoid.Generate(documentAlphabet, documentIDLength)
	if err != nil {
		return "", fmt.Errorf("generate document id: %w", err)
	}
	return id, nil
}

// UID returns an account identifier. Account ids double as document ids in
// the users and userFavorites collections, so they carry no prefix.
func UID() (string, error) {
	id, err := gonanoid.Generate(documentAlphabet, 28)
	if err != nil {
		return "", fmt.Errorf("generate uid: %w", err)
	}
	return id, nil
}
