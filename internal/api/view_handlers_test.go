package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layarapp/layar-server/internal/domain"
	"github.com/layarapp/layar-server/internal/guard"
	"github.com/layarapp/layar-server/internal/service"
)

func (ts *testServer) addMovie(t *testing.T, title, genre string, rating float64) string {
	t.Helper()
	movieID, err := ts.services.Catalog.Create(context.Background(), service.MovieForm{
		Title:  title,
		Genre:  genre,
		Year:   2020,
		Rating: rating,
	})
	require.NoError(t, err)
	return movieID
}

func (ts *testServer) view(t *testing.T, token string) domain.ViewState {
	t.Helper()
	resp := ts.api.Get("/api/v1/view", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	return decode[domain.ViewState](t, resp.Body.Bytes())
}

func TestNavigate(t *testing.T) {
	ts := setupTestServer(t, Options{})
	anon := ts.newClient(t)
	user := ts.signUp(t, "hana", "hana@example.com")

	tests := []struct {
		name  string
		token string
		path  string
		want  guard.Decision
	}{
		{"public page", anon, "/login", guard.Decision{Outcome: guard.Render}},
		{"signed out home", anon, "/home", guard.Decision{Outcome: guard.Redirect, Location: "/login", From: "/home"}},
		{"signed in home", user, "/home", guard.Decision{Outcome: guard.Render}},
		{"user at admin", user, "/admin", guard.Decision{Outcome: guard.Redirect, Location: "/home"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Get("/api/v1/navigate?path="+tt.path, bearer(tt.token))
			require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
			assert.Equal(t, tt.want, decode[guard.Decision](t, resp.Body.Bytes()))
		})
	}

	resp := ts.api.Get("/api/v1/navigate?path=/movie/abc", bearer(user))
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestToggleFavorite(t *testing.T) {
	ts := setupTestServer(t, Options{})
	token := ts.signUp(t, "ivan", "ivan@example.com")
	movieID := ts.addMovie(t, "Arrival", "Sci-Fi", 8)

	require.Eventually(t, func() bool {
		return len(ts.view(t, token).Movies) == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp := ts.api.Post("/api/v1/favorites/"+movieID+"/toggle", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, ToggleFavoriteResponse{MovieID: movieID, Favorite: true},
		decode[ToggleFavoriteResponse](t, resp.Body.Bytes()))

	require.Eventually(t, func() bool {
		v := ts.view(t, token)
		return v.IsFavorite(movieID) && v.Movies[0].FavoritesCount == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp = ts.api.Post("/api/v1/favorites/"+movieID+"/toggle", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, decode[ToggleFavoriteResponse](t, resp.Body.Bytes()).Favorite)

	require.Eventually(t, func() bool {
		v := ts.view(t, token)
		return !v.IsFavorite(movieID) && v.Movies[0].FavoritesCount == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestToggleFavorite_BackToBack(t *testing.T) {
	ts := setupTestServer(t, Options{})
	token := ts.signUp(t, "kai", "kai@example.com")
	movieID := ts.addMovie(t, "Arrival", "Sci-Fi", 8)

	for i := 1; i <= 4; i++ {
		resp := ts.api.Post("/api/v1/favorites/"+movieID+"/toggle", bearer(token))
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, i%2 == 1, decode[ToggleFavoriteResponse](t, resp.Body.Bytes()).Favorite, "toggle %d", i)
	}

	require.Eventually(t, func() bool {
		v := ts.view(t, token)
		return len(v.Movies) == 1 && !v.IsFavorite(movieID) && v.Movies[0].FavoritesCount == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestToggleFavorite_SignedOut(t *testing.T) {
	ts := setupTestServer(t, Options{})
	token := ts.newClient(t)

	resp := ts.api.Post("/api/v1/favorites/m1/toggle", bearer(token))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "NOT_SIGNED_IN", decodeError(t, resp.Body.Bytes()).Code)
}

func TestShelvesAndSearch(t *testing.T) {
	ts := setupTestServer(t, Options{})
	token := ts.signUp(t, "jade", "jade@example.com")
	best := ts.addMovie(t, "Interstellar", "Sci-Fi, Drama", 9)
	ts.addMovie(t, "Paddington", "Family", 7)

	require.Eventually(t, func() bool {
		return len(ts.view(t, token).Movies) == 2
	}, 2*time.Second, 10*time.Millisecond)

	resp := ts.api.Get("/api/v1/shelves", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	shelves := decode[service.Shelves](t, resp.Body.Bytes())
	require.Len(t, shelves.TopRated, 2)
	assert.Equal(t, best, shelves.TopRated[0].ID)
	assert.Empty(t, shelves.MyList)

	require.Eventually(t, func() bool {
		count, err := ts.services.Search.DocumentCount()
		return err == nil && count == 2
	}, 2*time.Second, 10*time.Millisecond)

	resp = ts.api.Get("/api/v1/search?q=interstellar", bearer(token))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	result := decode[SearchResponse](t, resp.Body.Bytes())
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, best, result.Hits[0].ID)
	assert.False(t, result.Hits[0].Favorite)
}

func TestShelves_RequiresSignIn(t *testing.T) {
	ts := setupTestServer(t, Options{})
	token := ts.newClient(t)

	resp := ts.api.Get("/api/v1/shelves", bearer(token))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Get("/api/v1/search?q=x", bearer(token))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
