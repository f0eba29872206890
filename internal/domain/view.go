package domain

// ViewState is the derived join of session, catalog and favorites that the
// view layer renders. It is never persisted.
type ViewState struct {
	Session       Session        `json:"session"`
	Movies        []CatalogEntry `json:"movies"`
	CatalogStatus CatalogStatus  `json:"catalogStatus"`
	FavoriteIDs   []string       `json:"favoriteIds"`
}

// IsFavorite reports whether movieID is in the favorite set.
func (v ViewState) IsFavorite(movieID string) bool {
	for _, id := range v.FavoriteIDs {
		if id == movieID {
			return true
		}
	}
	return false
}
