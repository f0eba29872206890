package backup

import "time"

// FormatVersion is the archive format version. Increment on breaking changes.
const FormatVersion = "1.0"

const (
	manifestPath = "manifest.json"
	fileSuffix   = ".layar.zip"
)

// Manifest describes an archive.
type Manifest struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	ProjectID string    `json:"project_id"`

	// Counts maps each exported collection to its document count.
	Counts map[string]int `json:"counts"`
}

func collectionPath(collection string) string {
	return "collections/" + collection + ".jsonl"
}

// entry is one JSONL line.
type entry struct {
	ID         string         `json:"id"`
	Fields     map[string]any `json:"fields"`
	UpdateTime time.Time      `json:"update_time"`
}
