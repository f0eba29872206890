package domain

import "slices"

// FieldMovieIDs is the set field of a favorites document.
const FieldMovieIDs = "movieIds"

// FavoritesRecord is a principal's persisted set of favorited movie ids.
type FavoritesRecord struct {
	OwnerID  string   `json:"ownerId"`
	MovieIDs []string `json:"movieIds"`
}

// FavoritesFromFields reads a favorites document. A missing or malformed
// movieIds field is an empty set.
func FavoritesFromFields(ownerID string, fields map[string]any) FavoritesRecord {
	rec := FavoritesRecord{OwnerID: ownerID}
	raw, _ := fields[FieldMovieIDs].([]any)
	for _, v := range raw {
		if s, ok := v.(string); ok && !slices.Contains(rec.MovieIDs, s) {
			rec.MovieIDs = append(rec.MovieIDs, s)
		}
	}
	return rec
}

// IDSet is an immutable set of identifiers.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
