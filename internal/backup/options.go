package backup

import "time"

// BackupOptions configures backup creation.
type BackupOptions struct {
	OutputPath string // defaults to a timestamped file in the backup directory
}

// RestoreOptions configures restoration.
type RestoreOptions struct {
	Mode          RestoreMode
	MergeStrategy MergeStrategy
	DryRun        bool // Validate and count without writing
}

// RestoreMode determines how to handle existing documents.
type RestoreMode string

const (
	// RestoreModeFull deletes every document of the archived collections
	// before restoring.
	RestoreModeFull RestoreMode = "full"

	// RestoreModeMerge writes archived documents over existing ones
	// according to the merge strategy.
	RestoreModeMerge RestoreMode = "merge"
)

// Valid reports whether the restore mode is recognized.
func (m RestoreMode) Valid() bool {
	return m == RestoreModeFull || m == RestoreModeMerge
}

// MergeStrategy determines conflict resolution in merge mode.
type MergeStrategy string

const (
	// MergeKeepLocal keeps the local document on conflict.
	MergeKeepLocal MergeStrategy = "keep_local"

	// MergeKeepBackup uses the archived document on conflict.
	MergeKeepBackup MergeStrategy = "keep_backup"

	// MergeNewest uses whichever has the later update time.
	MergeNewest MergeStrategy = "newest"
)

// Valid reports whether the merge strategy is recognized. Empty is valid and
// means keep_local.
func (s MergeStrategy) Valid() bool {
	switch s {
	case MergeKeepLocal, MergeKeepBackup, MergeNewest, "":
		return true
	default:
		return false
	}
}

// BackupResult is the outcome of a backup.
type BackupResult struct {
	Path     string         `json:"path"`
	Size     int64          `json:"size"`
	Counts   map[string]int `json:"counts"`
	Duration time.Duration  `json:"duration"`
	Checksum string         `json:"checksum"`
}

// BackupInfo describes an archive in the backup directory.
type BackupInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// RestoreResult is the outcome of a restore.
type RestoreResult struct {
	Imported map[string]int `json:"imported"`
	Skipped  map[string]int `json:"skipped"`
	Deleted  map[string]int `json:"deleted"`
	Errors   []RestoreError `json:"errors,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// RestoreError records one document that could not be restored.
type RestoreError struct {
	Collection string `json:"collection"`
	DocumentID string `json:"document_id"`
	Error      string `json:"error"`
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Manifest *Manifest `json:"manifest,omitempty"`
	Errors   []string  `json:"errors,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
}
