package discovery

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/jakoblorz/go-projscan/internal/filesystem"
)

// PathSignals holds the evidence collected for a single directory from one
// shallow listing. It is computed fresh per visit and never persisted.
type PathSignals struct {
	HasManifest            bool
	MatchedManifests       map[string]bool
	HasLockfile            bool
	HasVcsMarker           bool
	HasMonorepoMarker      bool
	MatchedMonorepoMarkers map[string]bool
	HasDocsFirst           bool
	HasStructureHints      bool
	CodeFileCount          int
	IsNegativeOnly         bool

	// Entries is the shallow listing the signals were derived from, kept
	// for the emitted project record
	Entries []string
}

// CollectSignals gathers the evidence for dirPath from a single directory
// listing, plus selective shallow reads of recognized marker files.
//
// A failed listing returns zero signals together with the error; the caller
// treats the directory as unreadable and skips it.
func CollectSignals(fsys filesystem.FileSystem, dirPath string, cfg *Config) (PathSignals, []fs.DirEntry, error) {
	entries, err := fsys.ReadDir(dirPath)
	if err != nil {
		return PathSignals{}, nil, err
	}

	signals := PathSignals{
		MatchedManifests:       map[string]bool{},
		MatchedMonorepoMarkers: map[string]bool{},
		Entries:                make([]string, 0, len(entries)),
	}

	rootMarkers := toSet(cfg.RootMarkers)
	monorepoMarkers := toSet(cfg.MonorepoMarkers)
	codeExtensions := toSet(cfg.CodeFileExtensions)

	onlyNegative := len(entries) > 0
	hasDocsDir := false

	for _, entry := range entries {
		name := entry.Name()
		signals.Entries = append(signals.Entries, name)

		if !negativeNames[name] {
			onlyNegative = false
		}

		if entry.IsDir() {
			if name == ".git" {
				signals.HasVcsMarker = true
			}
			if name == "docs" {
				hasDocsDir = true
			}
			if structureHintNames[name] {
				signals.HasStructureHints = true
			}
			continue
		}

		// .git can also be a file (worktrees, submodules)
		if name == ".git" {
			signals.HasVcsMarker = true
		}

		if rootMarkers[name] {
			signals.HasManifest = true
			signals.MatchedManifests[name] = true
		}

		if lockfileNames[name] {
			signals.HasLockfile = true
		}

		if monorepoMarkers[name] && isMonorepoMarker(fsys, dirPath, name) {
			signals.HasMonorepoMarker = true
			signals.MatchedMonorepoMarkers[name] = true
		}

		if codeExtensions[strings.ToLower(filepath.Ext(name))] {
			signals.CodeFileCount++
		}
	}

	if hasDocsDir {
		signals.HasDocsFirst = docsContainMarkdown(fsys, filepath.Join(dirPath, "docs"))
	}

	positive := signals.HasManifest || signals.HasLockfile ||
		signals.HasMonorepoMarker || signals.HasVcsMarker ||
		signals.HasDocsFirst || signals.HasStructureHints ||
		signals.CodeFileCount > 0
	signals.IsNegativeOnly = onlyNegative && !positive

	return signals, entries, nil
}

// isMonorepoMarker decides whether a matched marker file actually declares
// workspace members. Some markers are monorepo declarations by their mere
// presence; others double as single-project manifests and need a shallow
// content peek.
func isMonorepoMarker(fsys filesystem.FileSystem, dirPath, name string) bool {
	path := filepath.Join(dirPath, name)

	switch markerKindFor(name) {
	case markerPackageJSON:
		pkg, err := readPackageJSON(fsys, path)
		return err == nil && len(extractWorkspaces(pkg)) > 0
	case markerCargo:
		manifest, err := readCargoManifest(fsys, path)
		return err == nil && manifest.Workspace != nil
	case markerMavenPom:
		project, err := readMavenProject(fsys, path)
		return err == nil && len(project.Modules.Module) > 0
	case markerPnpmWorkspace, markerLerna, markerGoWork, markerGradleSettings:
		return true
	}

	return false
}

// docsContainMarkdown checks a docs directory for at least one markdown
// file with a single shallow listing. Unreadable docs directories simply
// do not count.
func docsContainMarkdown(fsys filesystem.FileSystem, docsPath string) bool {
	entries, err := fsys.ReadDir(docsPath)
	if err != nil {
		return false
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".md", ".mdx":
			return true
		}
	}

	return false
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
