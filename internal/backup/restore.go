package backup

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
)

// Restore loads an archive into the project. The archive is validated in
// full before anything is written.
func (s *Service) Restore(ctx context.Context, path string, opts RestoreOptions) (*RestoreResult, error) {
	if opts.Mode == "" {
		opts.Mode = RestoreModeMerge
	}
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("unknown restore mode %q", opts.Mode)
	}
	if !opts.MergeStrategy.Valid() {
		return nil, fmt.Errorf("unknown merge strategy %q", opts.MergeStrategy)
	}
	if opts.MergeStrategy == "" {
		opts.MergeStrategy = MergeKeepLocal
	}

	s.logger.Info("starting restore",
		"path", path,
		"mode", opts.Mode,
		"merge_strategy", opts.MergeStrategy,
		"dry_run", opts.DryRun)

	validation, err := s.Validate(ctx, path)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedBackup, validation.Errors)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer zr.Close()

	start := s.now()
	result := &RestoreResult{
		Imported: make(map[string]int),
		Skipped:  make(map[string]int),
		Deleted:  make(map[string]int),
	}

	for _, collection := range s.archivedCollections(validation.Manifest) {
		if err := s.restoreCollection(ctx, &zr.Reader, collection, opts, result); err != nil {
			return nil, err
		}
	}

	result.Duration = s.now().Sub(start)
	s.logger.Info("restore complete",
		"imported", result.Imported,
		"skipped", result.Skipped,
		"deleted", result.Deleted,
		"errors", len(result.Errors),
		"duration", result.Duration)
	return result, nil
}

// archivedCollections returns the known collections the manifest lists,
// in a stable order.
func (s *Service) archivedCollections(m *Manifest) []string {
	var names []string
	for name := range m.Counts {
		if slices.Contains(s.collections, name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *Service) restoreCollection(ctx context.Context, zr *zip.Reader, collection string, opts RestoreOptions, result *RestoreResult) error {
	if opts.Mode == RestoreModeFull {
		existing, err := s.docs.List(ctx, collection)
		if err != nil {
			return fmt.Errorf("list %s: %w", collection, err)
		}
		for _, doc := range existing {
			if !opts.DryRun {
				if err := s.docs.Delete(ctx, collection, doc.ID); err != nil {
					return fmt.Errorf("clear %s/%s: %w", collection, doc.ID, err)
				}
			}
			result.Deleted[collection]++
		}
	}

	rc, err := openFile(zr, collectionPath(collection))
	if err != nil {
		return fmt.Errorf("open %s: %w", collection, err)
	}

	for e, err := range readLines[entry](rc) {
		if err != nil {
			return fmt.Errorf("read %s: %w", collection, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		write, err := s.shouldWrite(ctx, collection, e, opts)
		if err != nil {
			return err
		}
		if !write {
			result.Skipped[collection]++
			continue
		}
		if !opts.DryRun {
			if err := s.docs.Set(ctx, collection, e.ID, e.Fields); err != nil {
				result.Errors = append(result.Errors, RestoreError{
					Collection: collection,
					DocumentID: e.ID,
					Error:      err.Error(),
				})
				continue
			}
		}
		result.Imported[collection]++
	}
	return nil
}

func (s *Service) shouldWrite(ctx context.Context, collection string, e entry, opts RestoreOptions) (bool, error) {
	if opts.Mode == RestoreModeFull {
		return true, nil
	}
	local, err := s.docs.Get(ctx, collection, e.ID)
	if err != nil {
		return false, fmt.Errorf("get %s/%s: %w", collection, e.ID, err)
	}
	if !local.Exists {
		return true, nil
	}
	switch opts.MergeStrategy {
	case MergeKeepBackup:
		return true, nil
	case MergeNewest:
		return e.UpdateTime.After(local.UpdateTime), nil
	default:
		return false, nil
	}
}

// Validate checks an archive without importing it: the manifest version,
// and that every listed collection decodes to the listed count.
func (s *Service) Validate(_ context.Context, path string) (*ValidationResult, error) {
	zr, err := zip.OpenReader(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBackupNotFound
	}
	if err != nil {
		return &ValidationResult{Errors: []string{fmt.Sprintf("failed to open backup: %v", err)}}, nil
	}
	defer zr.Close()

	result := &ValidationResult{Valid: true}
	fail := func(format string, args ...any) {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	rc, err := openFile(&zr.Reader, manifestPath)
	if err != nil {
		fail("%v: missing %s", ErrInvalidManifest, manifestPath)
		return result, nil
	}
	var manifest Manifest
	err = json.NewDecoder(rc).Decode(&manifest)
	rc.Close()
	if err != nil {
		fail("%v: %v", ErrInvalidManifest, err)
		return result, nil
	}
	result.Manifest = &manifest

	if manifest.Version != FormatVersion {
		fail("%v: %s (want %s)", ErrVersionMismatch, manifest.Version, FormatVersion)
		return result, nil
	}

	for collection, want := range manifest.Counts {
		if !slices.Contains(s.collections, collection) {
			result.Warnings = append(result.Warnings, fmt.Sprintf("unknown collection %s is ignored", collection))
			continue
		}
		rc, err := openFile(&zr.Reader, collectionPath(collection))
		if err != nil {
			fail("missing file: %s", collectionPath(collection))
			continue
		}
		got := 0
		for e, err := range readLines[entry](rc) {
			if err != nil {
				fail("%s: %v", collection, err)
				continue
			}
			if e.ID == "" {
				fail("%s: document without id", collection)
				continue
			}
			got++
		}
		if got != want {
			fail("%s: manifest lists %d documents, archive holds %d", collection, want, got)
		}
	}

	if manifest.ProjectID != s.projectID {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("backup is from project %q, restoring into %q", manifest.ProjectID, s.projectID))
	}
	return result, nil
}
