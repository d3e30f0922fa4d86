package models

import "time"

// ProjectDirectory represents a single discovered project root.
//
// It is the unit handed to downstream consumers (type detection, status
// analysis, rendering); discovery itself only fills in what a shallow
// listing can answer.
type ProjectDirectory struct {
	// Name is the directory's base name
	Name string `json:"name"`

	// Path is the absolute path to the project root
	Path string `json:"path"`

	// HasGitMarker reports whether the directory contains a .git entry
	HasGitMarker bool `json:"hasGitMarker"`

	// LastModifiedAt is the directory's own modification time
	LastModifiedAt time.Time `json:"lastModifiedAt"`

	// Entries holds the shallow listing, for downstream type detection
	Entries []string `json:"entries"`
}

// NewProjectDirectory creates a new ProjectDirectory instance
func NewProjectDirectory(name, path string, hasGitMarker bool, lastModifiedAt time.Time, entries []string) *ProjectDirectory {
	return &ProjectDirectory{
		Name:           name,
		Path:           path,
		HasGitMarker:   hasGitMarker,
		LastModifiedAt: lastModifiedAt,
		Entries:        entries,
	}
}
