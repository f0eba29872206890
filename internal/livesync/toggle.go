package livesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/layarapp/layar-server/internal/domain"
	domainerrors "github.com/layarapp/layar-server/internal/errors"
	"github.com/layarapp/layar-server/internal/remote"
)

// ErrNotSignedIn is returned when a toggle is attempted without a principal.
var ErrNotSignedIn = domainerrors.ErrNotSignedIn

// Toggle flips a movie's membership in the principal's favorites and moves
// the movie's favoritesCount with it.
//
// The membership write and the counter write are independent: a failure of
// one does not undo the other, and nothing reconciles the counter later.
// Local state is left alone; the favorites listener reports the result.
type Toggle struct {
	docs   remote.Documents
	store  *Store
	logger *slog.Logger
}

// NewToggle creates a toggle operation bound to one client's state.
func NewToggle(docs remote.Documents, store *Store, logger *slog.Logger) *Toggle {
	return &Toggle{docs: docs, store: store, logger: logger}
}

// ToggleFavorite adds or removes movieID. It returns the membership that was
// requested and the joined write errors, if any.
func (t *Toggle) ToggleFavorite(ctx context.Context, movieID string) (added bool, err error) {
	state := t.store.Snapshot()
	user := state.Auth.User
	if user == nil {
		return false, ErrNotSignedIn
	}
	if movieID == "" {
		return false, domainerrors.Validation("movie id is required")
	}

	uid := user.ID
	if state.Auth.FavoriteIDs.Has(movieID) {
		setErr := t.docs.Update(ctx, remote.CollectionFavorites, uid,
			remote.ArrayRemove(domain.FieldMovieIDs, movieID))
		if setErr != nil {
			t.logger.Error("remove favorite failed", "uid", uid, "movie_id", movieID, "error", setErr)
		}
		return false, errors.Join(setErr, t.count(ctx, uid, movieID, -1))
	}

	setErr := t.docs.Update(ctx, remote.CollectionFavorites, uid,
		remote.ArrayUnion(domain.FieldMovieIDs, movieID))
	if remote.IsNotFound(setErr) {
		setErr = t.docs.Set(ctx, remote.CollectionFavorites, uid, map[string]any{
			domain.FieldMovieIDs: []any{movieID},
		})
	}
	if setErr != nil {
		t.logger.Error("add favorite failed", "uid", uid, "movie_id", movieID, "error", setErr)
	}
	return true, errors.Join(setErr, t.count(ctx, uid, movieID, 1))
}

func (t *Toggle) count(ctx context.Context, uid, movieID string, delta float64) error {
	err := t.docs.Update(ctx, remote.CollectionMovies, movieID,
		remote.Increment(domain.FieldFavoritesCount, delta))
	if err != nil {
		t.logger.Error("favorites counter update failed",
			"uid", uid, "movie_id", movieID, "delta", delta, "error", err)
		return fmt.Errorf("update favoritesCount of %s: %w", movieID, err)
	}
	return nil
}
