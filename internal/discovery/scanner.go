package discovery

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar"
	gitignore "github.com/denormal/go-gitignore"
	"github.com/jakoblorz/go-projscan/internal/filesystem"
	"github.com/jakoblorz/go-projscan/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Scanner walks a directory tree top-down and accumulates project roots.
// It owns the traversal policy: ignore/denylist checks, depth bounds,
// symlink-cycle guarding, VCS boundaries and monorepo member expansion.
type Scanner struct {
	fs     filesystem.FileSystem
	cfg    *Config
	logger logrus.FieldLogger
}

// Option configures scanner behavior.
type Option func(*Scanner)

// WithLogger replaces the default stderr logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// New creates a Scanner over the given filesystem. A nil config selects
// the defaults.
func New(fsys filesystem.FileSystem, cfg *Config, options ...Option) *Scanner {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	scanner := &Scanner{
		fs:     fsys,
		cfg:    cfg,
		logger: defaultLogger(),
	}

	for _, option := range options {
		option(scanner)
	}

	return scanner
}

func defaultLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

// scanState is the mutable traversal state for one Scan call. The visited
// set is the only state shared across concurrent branches; checkAndMark is
// its single mutation point.
type scanState struct {
	mu      sync.Mutex
	visited map[string]bool
	rootErr error

	sem    *semaphore.Weighted
	ignore gitignore.GitIgnore
	root   string
}

func (st *scanState) checkAndMark(realPath string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.visited[realPath] {
		return false
	}
	st.visited[realPath] = true
	return true
}

func (st *scanState) setRootErr(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.rootErr = err
}

// Scan discovers project roots beneath rootPath. The only error it returns
// is an unreadable scan root; every other failure degrades to the affected
// subtree being absent from the result.
func (s *Scanner) Scan(rootPath string) ([]*models.ProjectDirectory, error) {
	if !filepath.IsAbs(rootPath) {
		cwd, err := s.fs.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve scan root: %w", err)
		}
		rootPath = filepath.Join(cwd, rootPath)
	}
	rootPath = filepath.Clean(rootPath)

	// Canonicalize the root so every emitted path is canonical; a symlink
	// root is skipped outright unless symlinks are followed.
	info, err := s.fs.Lstat(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", rootPath, err)
	}
	if !s.cfg.FollowSymlinks && info.Mode()&fs.ModeSymlink != 0 {
		s.logger.WithField("dir", rootPath).Warn("scan root is a symlink; skipping")
		return []*models.ProjectDirectory{}, nil
	}
	resolved, err := s.fs.EvalSymlinks(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", rootPath, err)
	}
	rootPath = resolved

	width := s.cfg.Concurrency
	if width < 1 {
		width = 1
	}

	st := &scanState{
		visited: make(map[string]bool),
		sem:     semaphore.NewWeighted(int64(width)),
		root:    rootPath,
	}
	if s.cfg.UseGitignore {
		st.ignore = s.loadRootGitIgnore(rootPath)
	}

	results := s.visit(rootPath, 0, st)
	if st.rootErr != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", rootPath, st.rootErr)
	}

	normalizeOrder(results)
	return results, nil
}

// visit applies the per-directory algorithm and returns the records found
// in the subtree rooted at dirPath. Failures below the scan root degrade
// to an empty result for the affected branch.
func (s *Scanner) visit(dirPath string, depth int, st *scanState) []*models.ProjectDirectory {
	// Step 1: canonicalize and guard against symlink cycles.
	if !s.cfg.FollowSymlinks {
		info, err := s.fs.Lstat(dirPath)
		if err != nil {
			if depth == 0 {
				st.setRootErr(err)
			}
			return nil
		}
		if info.Mode()&fs.ModeSymlink != 0 {
			return nil
		}
	}

	realPath, err := s.fs.EvalSymlinks(dirPath)
	if err != nil {
		if depth == 0 {
			st.setRootErr(err)
			return nil
		}
		s.logger.WithError(err).WithField("dir", dirPath).Warn("skipping unresolvable directory")
		return nil
	}

	if !st.checkAndMark(realPath) {
		return nil
	}

	// Step 2: ignore and denylist policy, applied before any read.
	if s.isIgnored(dirPath, depth, st) {
		return nil
	}

	// Step 3: depth bound. Silent termination, not an error.
	if depth > s.cfg.MaxDepth {
		return nil
	}

	// Step 4: collect evidence and classify.
	signals, entries, err := CollectSignals(s.fs, dirPath, s.cfg)
	if err != nil {
		if depth == 0 {
			st.setRootErr(err)
			return nil
		}
		s.logger.WithError(err).WithField("dir", dirPath).Warn("skipping unreadable directory")
		return nil
	}

	result := Score(signals, s.cfg)

	// Step 5: roots are emitted; monorepo roots additionally expand their
	// declared members, each as an independent traversal root.
	if result.IsRoot {
		out := []*models.ProjectDirectory{s.newRecord(dirPath, signals)}

		if result.IsMonorepo && s.cfg.IncludeNestedPackages != NestedNever {
			globs := ResolveWorkspaceGlobs(s.fs, dirPath, signals, s.logger)
			for _, member := range s.expandGlobs(dirPath, globs) {
				memberDepth := depth + pathDepth(dirPath, member)
				out = append(out, s.visit(member, memberDepth, st)...)
			}
		}

		// The VCS boundary holds for roots too: only monorepo expansion may
		// reach beneath a .git-bearing directory.
		if s.cfg.IncludeNestedPackages == NestedAlways &&
			!(signals.HasVcsMarker && s.cfg.StopAtVcsRoot) {
			out = append(out, s.visitChildren(dirPath, entries, depth, st)...)
		}

		return out
	}

	// Step 6: VCS boundaries are never crossed, root or not.
	if signals.HasVcsMarker && s.cfg.StopAtVcsRoot {
		return nil
	}

	return s.visitChildren(dirPath, entries, depth, st)
}

// visitChildren recurses into subdirectory entries, fanning out through
// the semaphore when a slot is free and degrading to inline traversal when
// it is not, so recursion can never starve itself. Results merge in entry
// order, keeping the outcome independent of scheduling.
func (s *Scanner) visitChildren(dirPath string, entries []fs.DirEntry, depth int, st *scanState) []*models.ProjectDirectory {
	var children []string
	for _, entry := range entries {
		child := filepath.Join(dirPath, entry.Name())

		if entry.Type()&fs.ModeSymlink != 0 {
			if !s.cfg.FollowSymlinks {
				continue
			}
			// only symlinks resolving to directories are traversal candidates
			if info, err := s.fs.Stat(child); err != nil || !info.IsDir() {
				continue
			}
		} else if !entry.IsDir() {
			continue
		}

		children = append(children, child)
	}

	results := make([][]*models.ProjectDirectory, len(children))
	var wg sync.WaitGroup

	for i, child := range children {
		if st.sem.TryAcquire(1) {
			wg.Add(1)
			go func(i int, child string) {
				defer wg.Done()
				defer st.sem.Release(1)
				results[i] = s.visit(child, depth+1, st)
			}(i, child)
		} else {
			results[i] = s.visit(child, depth+1, st)
		}
	}

	wg.Wait()

	var merged []*models.ProjectDirectory
	for _, r := range results {
		merged = append(merged, r...)
	}
	return merged
}

func (s *Scanner) newRecord(dirPath string, signals PathSignals) *models.ProjectDirectory {
	return models.NewProjectDirectory(
		filepath.Base(dirPath),
		dirPath,
		signals.HasVcsMarker,
		modTime(s.fs, dirPath),
		signals.Entries,
	)
}

func modTime(fsys filesystem.FileSystem, path string) time.Time {
	info, err := fsys.Stat(path)
	if err != nil {
		// stat can race with a removal; a zero time is fine downstream
		return time.Time{}
	}
	return info.ModTime()
}

// isIgnored applies name patterns, denylist paths and the optional root
// .gitignore. Directories are skipped before being read. Symlink entries
// were filtered earlier, so the gitignore check can assume directories.
func (s *Scanner) isIgnored(dirPath string, depth int, st *scanState) bool {
	name := filepath.Base(dirPath)
	for _, pattern := range s.cfg.IgnorePatterns {
		if pattern == name {
			return true
		}
		// Malformed patterns fail open.
		if matched, err := path.Match(pattern, name); err == nil && matched {
			return true
		}
	}

	slashPath := filepath.ToSlash(dirPath)
	for _, pattern := range s.cfg.DenylistPaths {
		if matched, err := doublestar.Match(pattern, slashPath); err == nil && matched {
			return true
		}
	}

	if st.ignore != nil && depth > 0 {
		if rel, err := filepath.Rel(st.root, dirPath); err == nil {
			if match := st.ignore.Relative(filepath.ToSlash(rel), true); match != nil && match.Ignore() {
				return true
			}
		}
	}

	return false
}

// expandGlobs resolves workspace member patterns into absolute existing
// directories beneath dir. Exact paths need a single stat; glob patterns
// walk the subtree and match relative slash paths.
func (s *Scanner) expandGlobs(dir string, globs []WorkspaceGlob) []string {
	seen := map[string]bool{}
	var matches []string

	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			matches = append(matches, p)
		}
	}

	for _, glob := range globs {
		pattern := string(glob)

		if !strings.ContainsAny(pattern, "*?[{") {
			candidate := filepath.Join(dir, filepath.FromSlash(pattern))
			if info, err := s.fs.Stat(candidate); err == nil && info.IsDir() {
				add(candidate)
			}
			continue
		}

		maxSegments := strings.Count(pattern, "/") + 1
		deepPattern := strings.Contains(pattern, "**")

		walkErr := s.fs.WalkDir(dir, func(walkPath string, entry fs.DirEntry, err error) error {
			if err != nil {
				return filepath.SkipDir
			}
			if walkPath == dir || !entry.IsDir() {
				return nil
			}

			name := entry.Name()
			for _, ignored := range s.cfg.IgnorePatterns {
				if ignored == name {
					return filepath.SkipDir
				}
			}

			rel, relErr := filepath.Rel(dir, walkPath)
			if relErr != nil {
				return filepath.SkipDir
			}
			rel = filepath.ToSlash(rel)

			segments := strings.Count(rel, "/") + 1
			if matched, matchErr := doublestar.Match(pattern, rel); matchErr == nil && matched {
				add(walkPath)
			}
			if !deepPattern && segments >= maxSegments {
				return filepath.SkipDir
			}
			return nil
		})
		if walkErr != nil {
			s.logger.WithError(walkErr).WithField("dir", dir).Warn("failed to expand workspace glob")
		}
	}

	sort.Strings(matches)
	return matches
}

func (s *Scanner) loadRootGitIgnore(rootPath string) gitignore.GitIgnore {
	ignorePath := filepath.Join(rootPath, ".gitignore")
	if !s.fs.Exists(ignorePath) {
		return nil
	}

	data, err := s.fs.ReadFile(ignorePath)
	if err != nil {
		s.logger.WithError(err).Warn("failed to read root .gitignore")
		return nil
	}

	return gitignore.New(bytes.NewReader(data), rootPath, nil)
}

// pathDepth counts the path segments separating member from base.
func pathDepth(base, member string) int {
	rel, err := filepath.Rel(base, member)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

// normalizeOrder makes the result deterministic regardless of internal
// scheduling: shallower paths before deeper ones, then lexicographic.
func normalizeOrder(results []*models.ProjectDirectory) {
	sort.SliceStable(results, func(i, j int) bool {
		di := strings.Count(results[i].Path, string(filepath.Separator))
		dj := strings.Count(results[j].Path, string(filepath.Separator))
		if di != dj {
			return di < dj
		}
		return results[i].Path < results[j].Path
	})
}
