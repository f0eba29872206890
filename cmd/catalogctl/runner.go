package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/layarapp/layar-server/internal/backup"
	"github.com/layarapp/layar-server/internal/config"
	"github.com/layarapp/layar-server/internal/docstore"
	"github.com/layarapp/layar-server/internal/identity"
	"github.com/layarapp/layar-server/internal/logger"
	"github.com/layarapp/layar-server/internal/service"
	"github.com/layarapp/layar-server/internal/store"
	"github.com/layarapp/layar-server/internal/validation"
)

type runner struct {
	out io.Writer
}

// project is an open document store with the services the commands use.
type project struct {
	db      *store.Store
	docs    *docstore.Store
	catalog *service.CatalogService
	auth    *service.AuthService
	backups *backup.Service
}

func (p *project) Close() {
	p.docs.Close()
	_ = p.db.Close()
}

func (r *runner) open(cmd *cli.Command) (*project, error) {
	base, err := expandHome(cmd.String("data-path"))
	if err != nil {
		return nil, err
	}

	log := logger.Discard()
	if cmd.Bool("verbose") {
		log = logger.New(logger.Config{Writer: os.Stderr, Level: slog.LevelDebug}).Logger
	}

	projectID := cmd.String("project")
	path := config.StorePath(base, projectID)
	db, err := store.New(path, log)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", path, err)
	}

	docs := docstore.New(db, log)
	v := validation.New()
	provider := identity.NewProvider(db, nil, log)

	return &project{
		db:      db,
		docs:    docs,
		catalog: service.NewCatalogService(docs, v, log),
		auth:    service.NewAuthService(docs, provider, v, log),
		backups: backup.NewService(docs, config.BackupPath(base, projectID), projectID, log),
	}, nil
}

func (r *runner) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, path[2:]), nil
}
