package discovery

// NestedPackagesMode controls whether discovery descends into the members
// of an already-classified project root.
type NestedPackagesMode string

const (
	// NestedNever treats every root as terminal.
	NestedNever NestedPackagesMode = "never"

	// NestedWhenMonorepo expands workspace members of monorepo roots only.
	NestedWhenMonorepo NestedPackagesMode = "when-monorepo"

	// NestedAlways additionally keeps descending beneath every root.
	NestedAlways NestedPackagesMode = "always"
)

// Config carries the full discovery configuration consumed by the signal
// collector, the scoring engine and the traversal controller.
//
// Loading and merging configuration files is the caller's concern; the CLI
// maps flags onto this struct directly.
type Config struct {
	// MaxDepth bounds traversal depth relative to the scan root
	MaxDepth int

	// IgnorePatterns are directory-name patterns that are never entered
	IgnorePatterns []string

	// DenylistPaths are path patterns (gitignore-style globs) that are
	// always excluded from traversal regardless of score
	DenylistPaths []string

	// RootMarkers are manifest file names that strongly indicate a root
	RootMarkers []string

	// MonorepoMarkers are file names that may declare workspace members
	MonorepoMarkers []string

	// LockfilesAsStrong counts a known lockfile as strong evidence when a
	// manifest is also present
	LockfilesAsStrong bool

	// MinCodeFilesToConsider is the shallow code-file count needed before
	// structural hints contribute to the score
	MinCodeFilesToConsider int

	// CodeFileExtensions is the extension set counted as code
	CodeFileExtensions []string

	// StopAtVcsRoot treats directories containing .git as traversal stop
	// points even when they do not classify as roots
	StopAtVcsRoot bool

	// IncludeNestedPackages controls monorepo member expansion
	IncludeNestedPackages NestedPackagesMode

	// StopAtNodePackageRoot preserves the legacy rule that any directory
	// containing package.json is always a root
	StopAtNodePackageRoot bool

	// FollowSymlinks descends through symlinked directories; cycles are
	// still guarded by canonical-path tracking
	FollowSymlinks bool

	// Concurrency is the sibling fan-out width
	Concurrency int

	// UseGitignore additionally skips directories matched by the scan
	// root's own .gitignore (root file only)
	UseGitignore bool
}

// DefaultConfig returns the discovery defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxDepth: 8,
		IgnorePatterns: []string{
			".git", ".hg", ".svn", "node_modules", "vendor", "dist",
			"build", "out", "target", ".cache", ".next", ".turbo",
			"__pycache__", ".venv", "venv", ".idea", ".vscode",
		},
		DenylistPaths: nil,
		RootMarkers: []string{
			"package.json", "go.mod", "Cargo.toml", "pyproject.toml",
			"setup.py", "pom.xml", "build.gradle", "build.gradle.kts",
			"composer.json", "Gemfile", "CMakeLists.txt", "mix.exs",
			"Package.swift",
		},
		MonorepoMarkers: []string{
			"pnpm-workspace.yaml", "lerna.json", "go.work", "package.json",
			"Cargo.toml", "pom.xml", "settings.gradle", "settings.gradle.kts",
		},
		LockfilesAsStrong:      true,
		MinCodeFilesToConsider: 2,
		CodeFileExtensions: []string{
			".go", ".js", ".jsx", ".ts", ".tsx", ".py", ".rs", ".java",
			".kt", ".rb", ".c", ".h", ".cc", ".cpp", ".cs", ".php",
			".swift", ".scala", ".ex", ".exs",
		},
		StopAtVcsRoot:         true,
		IncludeNestedPackages: NestedWhenMonorepo,
		StopAtNodePackageRoot: true,
		FollowSymlinks:        false,
		Concurrency:           8,
		UseGitignore:          true,
	}
}

// lockfileNames is the fixed set of recognized lockfiles.
var lockfileNames = map[string]bool{
	"package-lock.json": true,
	"yarn.lock":         true,
	"pnpm-lock.yaml":    true,
	"bun.lockb":         true,
	"Cargo.lock":        true,
	"go.sum":            true,
	"poetry.lock":       true,
	"uv.lock":           true,
	"Pipfile.lock":      true,
	"composer.lock":     true,
	"Gemfile.lock":      true,
}

// structureHintNames are directory names that suggest a conventional
// project layout. They only score together with the code-file threshold.
var structureHintNames = map[string]bool{
	"src":   true,
	"app":   true,
	"lib":   true,
	"tests": true,
}

// negativeNames is the fixed denylist-of-semantics: directories whose
// presence suggests vendored, generated or example content.
var negativeNames = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"target":       true,
	"coverage":     true,
	"tmp":          true,
	"example":      true,
	"examples":     true,
	".cache":       true,
	".next":        true,
	".turbo":       true,
	"__pycache__":  true,
}
