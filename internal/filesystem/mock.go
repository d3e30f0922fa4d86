package filesystem

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"time"
)

// MockFileSystem provides an in-memory filesystem for testing.
//
// Besides plain files and directories it can model symlinks and
// per-directory listing failures, which the scanner needs for its
// cycle-guard and unreadable-directory behavior.
type MockFileSystem struct {
	files       map[string]*MockFile
	symlinks    map[string]string
	readDirErrs map[string]error
	currentDir  string
}

// MockFile represents a file in the mock filesystem
type MockFile struct {
	Content []byte
	Mode    fs.FileMode
	ModTime time.Time
	IsDir   bool
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() interface{}   { return nil }

// mockDirEntry implements fs.DirEntry
type mockDirEntry struct {
	info fs.FileInfo
}

func (m *mockDirEntry) Name() string               { return m.info.Name() }
func (m *mockDirEntry) IsDir() bool                { return m.info.IsDir() }
func (m *mockDirEntry) Type() fs.FileMode          { return m.info.Mode().Type() }
func (m *mockDirEntry) Info() (fs.FileInfo, error) { return m.info, nil }

// NewMockFileSystem creates a new MockFileSystem
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		files:       make(map[string]*MockFile),
		symlinks:    make(map[string]string),
		readDirErrs: make(map[string]error),
		currentDir:  "/workspace",
	}
}

// AddFile adds a file to the mock filesystem
func (mfs *MockFileSystem) AddFile(path string, content []byte) {
	cleanPath := filepath.Clean(path)
	mfs.files[cleanPath] = &MockFile{
		Content: content,
		Mode:    0644,
		ModTime: time.Now(),
		IsDir:   false,
	}

	mfs.ensureParents(cleanPath)
}

// AddDir adds a directory to the mock filesystem
func (mfs *MockFileSystem) AddDir(path string) {
	cleanPath := filepath.Clean(path)
	if _, exists := mfs.files[cleanPath]; !exists {
		mfs.files[cleanPath] = &MockFile{
			Mode:    0755 | fs.ModeDir,
			ModTime: time.Now(),
			IsDir:   true,
		}
	}

	mfs.ensureParents(cleanPath)
}

// AddSymlink adds a symlink at path pointing to target (absolute path)
func (mfs *MockFileSystem) AddSymlink(path, target string) {
	cleanPath := filepath.Clean(path)
	mfs.symlinks[cleanPath] = filepath.Clean(target)
	mfs.ensureParents(cleanPath)
}

// SetReadDirError makes ReadDir fail for the given directory, simulating
// permission errors and similar listing failures
func (mfs *MockFileSystem) SetReadDirError(path string, err error) {
	mfs.readDirErrs[filepath.Clean(path)] = err
}

func (mfs *MockFileSystem) ensureParents(cleanPath string) {
	dir := filepath.Dir(cleanPath)
	for dir != "." && dir != "/" && dir != cleanPath {
		if _, exists := mfs.files[dir]; !exists {
			mfs.files[dir] = &MockFile{
				Mode:    0755 | fs.ModeDir,
				ModTime: time.Now(),
				IsDir:   true,
			}
		}
		cleanPath = dir
		dir = filepath.Dir(dir)
	}
}

// resolve follows symlinks in every path component, with a hop limit to
// terminate on cycles.
func (mfs *MockFileSystem) resolve(path string) (string, error) {
	cleanPath := filepath.Clean(path)

	resolved := "/"
	remaining := splitPath(cleanPath)
	hops := 0

	for len(remaining) > 0 {
		resolved = filepath.Join(resolved, remaining[0])
		remaining = remaining[1:]

		if target, isLink := mfs.symlinks[resolved]; isLink {
			hops++
			if hops > 40 {
				return "", errors.New("too many levels of symbolic links")
			}
			rest := remaining
			remaining = append(splitPath(target), rest...)
			resolved = "/"
		}
	}

	return resolved, nil
}

func splitPath(path string) []string {
	var parts []string
	current := filepath.Clean(path)
	for current != "/" && current != "." {
		parts = append([]string{filepath.Base(current)}, parts...)
		current = filepath.Dir(current)
	}
	return parts
}

func (mfs *MockFileSystem) ReadFile(path string) ([]byte, error) {
	resolved, err := mfs.resolve(path)
	if err != nil {
		return nil, err
	}

	file, exists := mfs.files[resolved]
	if !exists {
		return nil, fs.ErrNotExist
	}
	if file.IsDir {
		return nil, errors.New("is a directory")
	}
	return file.Content, nil
}

func (mfs *MockFileSystem) ReadDir(path string) ([]fs.DirEntry, error) {
	resolved, err := mfs.resolve(path)
	if err != nil {
		return nil, err
	}

	if readErr, failing := mfs.readDirErrs[resolved]; failing {
		return nil, &fs.PathError{Op: "open", Path: path, Err: readErr}
	}

	file, exists := mfs.files[resolved]
	if !exists {
		return nil, fs.ErrNotExist
	}
	if !file.IsDir {
		return nil, errors.New("not a directory")
	}

	var entries []fs.DirEntry
	for p, f := range mfs.files {
		if filepath.Dir(p) != resolved || p == resolved {
			continue
		}
		entries = append(entries, &mockDirEntry{info: &mockFileInfo{
			name:    filepath.Base(p),
			size:    int64(len(f.Content)),
			mode:    f.Mode,
			modTime: f.ModTime,
			isDir:   f.IsDir,
		}})
	}
	for p := range mfs.symlinks {
		if filepath.Dir(p) != resolved {
			continue
		}
		entries = append(entries, &mockDirEntry{info: &mockFileInfo{
			name: filepath.Base(p),
			mode: 0777 | fs.ModeSymlink,
		}})
	}

	// Sort entries by name for consistent ordering
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	return entries, nil
}

func (mfs *MockFileSystem) Stat(path string) (fs.FileInfo, error) {
	resolved, err := mfs.resolve(path)
	if err != nil {
		return nil, err
	}

	file, exists := mfs.files[resolved]
	if !exists {
		return nil, fs.ErrNotExist
	}

	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(file.Content)),
		mode:    file.Mode,
		modTime: file.ModTime,
		isDir:   file.IsDir,
	}, nil
}

func (mfs *MockFileSystem) Lstat(path string) (fs.FileInfo, error) {
	cleanPath := filepath.Clean(path)

	if _, isLink := mfs.symlinks[cleanPath]; isLink {
		return &mockFileInfo{
			name: filepath.Base(cleanPath),
			mode: 0777 | fs.ModeSymlink,
		}, nil
	}

	return mfs.Stat(path)
}

func (mfs *MockFileSystem) Exists(path string) bool {
	_, err := mfs.Stat(path)
	return err == nil
}

func (mfs *MockFileSystem) Getwd() (string, error) {
	return mfs.currentDir, nil
}

func (mfs *MockFileSystem) EvalSymlinks(path string) (string, error) {
	resolved, err := mfs.resolve(path)
	if err != nil {
		return "", err
	}
	if _, exists := mfs.files[resolved]; !exists {
		return "", fs.ErrNotExist
	}
	return resolved, nil
}

// WalkDir walks the tree rooted at root in lexical order. Symlinks are
// visited but not descended into, matching filepath.WalkDir.
func (mfs *MockFileSystem) WalkDir(root string, fn fs.WalkDirFunc) error {
	resolved, err := mfs.resolve(root)
	if err != nil {
		return err
	}

	info, statErr := mfs.Stat(resolved)
	if statErr != nil {
		return statErr
	}

	err = mfs.walk(resolved, &mockDirEntry{info: info}, fn)
	if err == filepath.SkipDir || err == fs.SkipAll {
		return nil
	}
	return err
}

func (mfs *MockFileSystem) walk(path string, entry fs.DirEntry, fn fs.WalkDirFunc) error {
	if err := fn(path, entry, nil); err != nil {
		if err == filepath.SkipDir && entry.IsDir() {
			return nil
		}
		return err
	}

	if !entry.IsDir() {
		return nil
	}

	children, err := mfs.ReadDir(path)
	if err != nil {
		return fn(path, entry, err)
	}

	for _, child := range children {
		if err := mfs.walk(filepath.Join(path, child.Name()), child, fn); err != nil {
			return err
		}
	}

	return nil
}

// SetCurrentDir sets the current working directory for the mock
func (mfs *MockFileSystem) SetCurrentDir(dir string) {
	mfs.currentDir = dir
}
