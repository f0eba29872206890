package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/layarapp/layar-server/internal/backup"
	"github.com/layarapp/layar-server/internal/config"
	"github.com/layarapp/layar-server/internal/docstore"
	"github.com/layarapp/layar-server/internal/domain"
	domainerrors "github.com/layarapp/layar-server/internal/errors"
	"github.com/layarapp/layar-server/internal/identity"
	"github.com/layarapp/layar-server/internal/logger"
	"github.com/layarapp/layar-server/internal/remote"
	"github.com/layarapp/layar-server/internal/service"
	"github.com/layarapp/layar-server/internal/store"
	"github.com/layarapp/layar-server/internal/validation"
)

func run(t *testing.T, dataPath string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	full := append([]string{"catalogctl", "--data-path", dataPath, "--project", "test"}, args...)
	err := newApp(&runner{out: &out}).Run(context.Background(), full)
	return out.String(), err
}

func TestLoadSeedFile(t *testing.T) {
	f, err := loadSeedFile(filepath.Join("testdata", "catalog.toml"))
	require.NoError(t, err)
	require.Len(t, f.Movies, 2)

	form := f.Movies[0].form()
	assert.Equal(t, "Arrival", form.Title)
	assert.Equal(t, 2016, form.Year)
	assert.Equal(t, "PG-13", form.AgeRating)
	assert.Equal(t, "https://img.example.com/paddington2.jpg", f.Movies[1].PosterURL)
}

func TestLoadSeedFile_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[[movies]]\ntitle = \"X\"\nstars = 5\n"), 0o600))

	_, err := loadSeedFile(path)
	assert.ErrorContains(t, err, "unknown key")
}

func TestSeedAndInspect(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, dir, "seed", "--file", filepath.Join("testdata", "catalog.toml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Created 2 of 2 movies")

	out, err = run(t, dir, "seed", "--file", filepath.Join("testdata", "catalog.toml"), "--replace")
	require.NoError(t, err)
	assert.Contains(t, out, "Created 2 of 2 movies")

	out, err = run(t, dir, "inspect", "--collection", remote.CollectionMovies, "--dump")
	require.NoError(t, err)
	assert.Contains(t, out, "=== movies (2) ===")
	assert.Contains(t, out, "Paddington 2")

	_, err = run(t, dir, "inspect", "--collection", "books")
	assert.ErrorContains(t, err, "unknown collection")
}

func TestSeed_InvalidMovieStops(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[movies]]
title = "Good"
genre = "Drama"

[[movies]]
title = "Bad"
genre = "Drama"
rating = 42.0
`), 0o600))

	out, err := run(t, dir, "seed", "--file", path)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
	assert.Contains(t, out, "Created 1 of 2 movies")
}

func TestGrantAdmin(t *testing.T) {
	dir := t.TempDir()

	// Register an account the way the server does, then close the store so
	// the command can open it.
	func() {
		log := logger.Discard()
		db, err := store.New(config.StorePath(dir, "test"), log)
		require.NoError(t, err)
		defer func() { _ = db.Close() }()
		docs := docstore.New(db, log)
		defer docs.Close()

		provider := identity.NewProvider(db, nil, log)
		auth := service.NewAuthService(docs, provider, validation.New(), log)
		client := identity.NewClient(provider, log)
		defer client.Close()

		_, err = auth.Register(context.Background(), client, service.RegisterRequest{
			Username: "root", Email: "root@example.com", Password: "secret123", ConfirmPassword: "secret123",
		})
		require.NoError(t, err)
	}()

	out, err := run(t, dir, "grant-admin", "--email", "root@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "is now admin")

	out, err = run(t, dir, "inspect", "--collection", remote.CollectionUsers, "--dump")
	require.NoError(t, err)
	assert.Contains(t, out, `"role": "`+string(domain.RoleAdmin)+`"`)

	_, err = run(t, dir, "grant-admin", "--email", "nobody@example.com")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestBackupRoundTrip(t *testing.T) {
	dir := t.TempDir()

	_, err := run(t, dir, "seed", "--file", filepath.Join("testdata", "catalog.toml"))
	require.NoError(t, err)

	out, err := run(t, dir, "backup", "create")
	require.NoError(t, err)
	assert.Contains(t, out, "movies: 2")

	out, err = run(t, dir, "backup", "list")
	require.NoError(t, err)
	require.Contains(t, out, "backup-")
	id := strings.Fields(out)[0]

	out, err = run(t, dir, "backup", "validate", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Backup is valid")

	out, err = run(t, dir, "backup", "restore", "--mode", "full", "--dry-run", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Would restore movies: 2 written, 0 skipped, 2 deleted")

	out, err = run(t, dir, "backup", "restore", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Restored movies: 0 written, 2 skipped, 0 deleted")

	_, err = run(t, dir, "backup", "restore", "--mode", "events_only", id)
	assert.ErrorContains(t, err, "unknown restore mode")

	out, err = run(t, dir, "backup", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted "+id)

	_, err = run(t, dir, "backup", "delete", id)
	assert.ErrorIs(t, err, backup.ErrBackupNotFound)
}

func TestWatchFile_DebouncesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, os.WriteFile(path, []byte("# empty\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- watchFile(ctx, path, 50*time.Millisecond, func() { calls.Add(1) })
	}()

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	for i := range 3 {
		require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf("# edit %d\n", i)), 0o600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.toml"), []byte("x"), 0o600))

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	cancel()
	require.NoError(t, <-done)
}

func TestReseed(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "seed", "--file", filepath.Join("testdata", "catalog.toml"))
	require.NoError(t, err)

	var out bytes.Buffer
	r := &runner{out: &out}
	app := newApp(r)
	app.Commands = append(app.Commands, &cli.Command{
		Name: "reseed-once",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p, err := r.open(cmd)
			if err != nil {
				return err
			}
			defer p.Close()
			r.reseed(ctx, p, filepath.Join("testdata", "catalog.toml"))
			return nil
		},
	})
	require.NoError(t, app.Run(context.Background(), []string{"catalogctl", "--data-path", dir, "--project", "test", "reseed-once"}))
	assert.Contains(t, out.String(), "Reloaded: created 2 of 2 movies")

	out2, err := run(t, dir, "inspect", "--collection", remote.CollectionMovies)
	require.NoError(t, err)
	assert.Contains(t, out2, "=== movies (2) ===")
}
