package service

import (
	"cmp"
	"slices"

	"github.com/layarapp/layar-server/internal/domain"
)

// Shelf sizes on the home page.
const (
	heroSize  = 5
	shelfSize = 10
)

// Shelves are the home page rows derived from a view state.
type Shelves struct {
	Hero             []domain.CatalogEntry `json:"hero"`
	TopRated         []domain.CatalogEntry `json:"topRated"`
	Trending         []domain.CatalogEntry `json:"trending"`
	NewReleases      []domain.CatalogEntry `json:"newReleases"`
	ContinueWatching []domain.CatalogEntry `json:"continueWatching"`
	MyList           []domain.CatalogEntry `json:"myList"`
}

// BuildShelves ranks the catalog into home page rows. Ties keep catalog
// order. My List follows catalog order and skips favorites whose movie no
// longer exists.
func BuildShelves(view domain.ViewState) Shelves {
	byRating := sortedCopy(view.Movies, func(a, b domain.CatalogEntry) int {
		return cmp.Compare(b.Rating, a.Rating)
	})
	byFavorites := sortedCopy(view.Movies, func(a, b domain.CatalogEntry) int {
		return cmp.Compare(b.FavoritesCount, a.FavoritesCount)
	})

	var dated []domain.CatalogEntry
	for _, m := range view.Movies {
		if m.CreatedAt != nil {
			dated = append(dated, m)
		}
	}
	newest := sortedCopy(dated, func(a, b domain.CatalogEntry) int {
		return b.CreatedAt.Compare(*a.CreatedAt)
	})

	favorites := domain.NewIDSet(view.FavoriteIDs...)
	myList := []domain.CatalogEntry{}
	for _, m := range view.Movies {
		if favorites.Has(m.ID) {
			myList = append(myList, m)
		}
	}

	return Shelves{
		Hero:             head(byRating, heroSize),
		TopRated:         head(byRating, shelfSize),
		Trending:         head(byFavorites, shelfSize),
		NewReleases:      head(newest, shelfSize),
		ContinueWatching: slices.Clone(view.Movies),
		MyList:           myList,
	}
}

func sortedCopy(movies []domain.CatalogEntry, cmpFn func(a, b domain.CatalogEntry) int) []domain.CatalogEntry {
	out := slices.Clone(movies)
	slices.SortStableFunc(out, cmpFn)
	return out
}

func head(movies []domain.CatalogEntry, n int) []domain.CatalogEntry {
	if len(movies) > n {
		movies = movies[:n]
	}
	if movies == nil {
		return []domain.CatalogEntry{}
	}
	return slices.Clone(movies)
}
