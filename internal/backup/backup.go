package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/layarapp/layar-server/internal/remote"
)

// Collections are the document collections a backup covers by default.
var Collections = []string{remote.CollectionUsers, remote.CollectionMovies, remote.CollectionFavorites}

// Service creates, lists and restores archives of one project.
type Service struct {
	docs        remote.Documents
	collections []string
	backupDir   string
	projectID   string
	logger      *slog.Logger
	now         func() time.Time
}

// NewService creates a Service. Archives live in backupDir.
func NewService(docs remote.Documents, backupDir, projectID string, logger *slog.Logger) *Service {
	return &Service{
		docs:        docs,
		collections: Collections,
		backupDir:   backupDir,
		projectID:   projectID,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create writes an archive of every collection.
func (s *Service) Create(ctx context.Context, opts BackupOptions) (*BackupResult, error) {
	start := s.now()

	outputPath := opts.OutputPath
	if outputPath == "" {
		if err := os.MkdirAll(s.backupDir, 0o750); err != nil {
			return nil, fmt.Errorf("create backup dir: %w", err)
		}
		outputPath = filepath.Join(s.backupDir, "backup-"+start.Format("2006-01-02-150405")+fileSuffix)
	}

	s.logger.Info("creating backup", "output", outputPath, "project", s.projectID)

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}

	counts, err := s.write(ctx, f, start)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close backup file: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(outputPath)
		return nil, err
	}

	size, checksum, err := fileChecksum(outputPath)
	if err != nil {
		return nil, err
	}

	result := &BackupResult{
		Path:     outputPath,
		Size:     size,
		Counts:   counts,
		Duration: s.now().Sub(start),
		Checksum: checksum,
	}
	s.logger.Info("backup complete",
		"path", result.Path,
		"size", result.Size,
		"duration", result.Duration,
		"checksum", result.Checksum)
	return result, nil
}

func (s *Service) write(ctx context.Context, w io.Writer, createdAt time.Time) (map[string]int, error) {
	zw := zip.NewWriter(w)
	counts := make(map[string]int, len(s.collections))

	for _, collection := range s.collections {
		docs, err := s.docs.List(ctx, collection)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		lw, err := newLineWriter(zw, collectionPath(collection))
		if err != nil {
			return nil, fmt.Errorf("create %s entry: %w", collection, err)
		}
		for _, doc := range docs {
			if err := lw.Write(entry{ID: doc.ID, Fields: doc.Fields, UpdateTime: doc.UpdateTime}); err != nil {
				return nil, fmt.Errorf("write %s/%s: %w", collection, doc.ID, err)
			}
		}
		counts[collection] = lw.count
	}

	// The manifest goes last so its counts match what was written.
	mw, err := zw.Create(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("create manifest: %w", err)
	}
	manifest := Manifest{
		Version:   FormatVersion,
		CreatedAt: createdAt,
		ProjectID: s.projectID,
		Counts:    counts,
	}
	enc := json.NewEncoder(mw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finish archive: %w", err)
	}
	return counts, nil
}

func fileChecksum(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("open backup: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return 0, "", fmt.Errorf("checksum backup: %w", err)
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}

// List returns the archives in the backup directory, newest first.
func (s *Service) List(context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.backupDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var backups []BackupInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupInfo{
			ID:        strings.TrimSuffix(e.Name(), fileSuffix),
			Path:      filepath.Join(s.backupDir, e.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Path returns the file path for a backup id.
func (s *Service) Path(id string) string {
	return filepath.Join(s.backupDir, id+fileSuffix)
}

// Delete removes a backup by id.
func (s *Service) Delete(_ context.Context, id string) error {
	if err := os.Remove(s.Path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrBackupNotFound
		}
		return err
	}
	return nil
}
