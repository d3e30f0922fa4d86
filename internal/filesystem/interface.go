package filesystem

import (
	"io/fs"
)

// FileSystem provides a read-only abstraction over file operations for testability
type FileSystem interface {
	// File operations
	ReadFile(path string) ([]byte, error)

	// Directory operations
	ReadDir(path string) ([]fs.DirEntry, error)

	// Path operations
	Stat(path string) (fs.FileInfo, error)
	Lstat(path string) (fs.FileInfo, error)
	Exists(path string) bool
	Getwd() (string, error)

	// Symlink resolution
	EvalSymlinks(path string) (string, error)

	// File walking
	WalkDir(root string, fn fs.WalkDirFunc) error
}
