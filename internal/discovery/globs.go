package discovery

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jakoblorz/go-projscan/internal/filesystem"
	"github.com/sirupsen/logrus"
	"golang.org/x/mod/modfile"
	"gopkg.in/yaml.v3"
)

// WorkspaceGlob is a relative path pattern rooted at the monorepo
// directory. Some ecosystems declare exact member paths, others globs;
// an exact path is just a pattern without metacharacters.
type WorkspaceGlob string

// ResolveWorkspaceGlobs parses the matched monorepo markers of dirPath
// into member patterns. Malformed declarations are skipped with a warning;
// the resolver never fails the scan.
func ResolveWorkspaceGlobs(fsys filesystem.FileSystem, dirPath string, signals PathSignals, logger logrus.FieldLogger) []WorkspaceGlob {
	markers := make([]string, 0, len(signals.MatchedMonorepoMarkers))
	for marker := range signals.MatchedMonorepoMarkers {
		markers = append(markers, marker)
	}
	sort.Strings(markers)

	var globs []WorkspaceGlob
	seen := map[WorkspaceGlob]bool{}

	for _, marker := range markers {
		patterns, err := parseMarker(fsys, dirPath, marker)
		if err != nil {
			logger.WithError(err).
				WithField("dir", dirPath).
				WithField("marker", marker).
				Warn("skipping malformed workspace declaration")
			continue
		}

		for _, pattern := range patterns {
			glob := normalizeGlob(pattern)
			if glob == "" || seen[glob] {
				continue
			}
			seen[glob] = true
			globs = append(globs, glob)
		}
	}

	return globs
}

func parseMarker(fsys filesystem.FileSystem, dirPath, marker string) ([]string, error) {
	markerPath := filepath.Join(dirPath, marker)

	switch markerKindFor(marker) {
	case markerPnpmWorkspace:
		return parsePnpmWorkspace(fsys, markerPath)
	case markerPackageJSON:
		return parsePackageWorkspaces(fsys, markerPath)
	case markerLerna:
		return parseLernaPackages(fsys, markerPath)
	case markerGoWork:
		return parseGoWorkUse(fsys, markerPath)
	case markerCargo:
		return parseCargoMembers(fsys, markerPath)
	case markerMavenPom:
		return parseMavenModules(fsys, markerPath)
	case markerGradleSettings:
		return parseGradleIncludes(fsys, markerPath)
	}

	return nil, fmt.Errorf("unrecognized workspace marker %s", marker)
}

// normalizeGlob cleans a declared member pattern. Absolute patterns and
// patterns escaping the monorepo directory are rejected.
func normalizeGlob(pattern string) WorkspaceGlob {
	cleaned := path.Clean(filepath.ToSlash(strings.TrimSpace(pattern)))
	if cleaned == "" || cleaned == "." || cleaned == "/" {
		return ""
	}
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return ""
	}
	return WorkspaceGlob(cleaned)
}

// parsePnpmWorkspace reads the packages: sequence of a pnpm-workspace.yaml.
func parsePnpmWorkspace(fsys filesystem.FileSystem, path string) ([]string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var workspace struct {
		Packages []string `yaml:"packages"`
	}
	if err := yaml.Unmarshal(data, &workspace); err != nil {
		return nil, fmt.Errorf("failed to parse pnpm workspace file: %w", err)
	}

	return workspace.Packages, nil
}

// parsePackageWorkspaces reads the workspaces field of a package.json,
// which is either a plain list of globs or an object whose packages field
// is a list of globs.
func parsePackageWorkspaces(fsys filesystem.FileSystem, path string) ([]string, error) {
	pkg, err := readPackageJSON(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse package.json: %w", err)
	}

	return extractWorkspaces(pkg), nil
}

// parseLernaPackages reads the packages list of a lerna.json, defaulting
// to packages/* when the marker carries no explicit list.
func parseLernaPackages(fsys filesystem.FileSystem, path string) ([]string, error) {
	config, err := readLernaConfig(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse lerna.json: %w", err)
	}

	if len(config.Packages) == 0 {
		return []string{"packages/*"}, nil
	}

	return config.Packages, nil
}

// parseGoWorkUse reads the use directives of a go.work file. Each entry is
// an exact relative directory path, not a glob.
func parseGoWorkUse(fsys filesystem.FileSystem, path string) ([]string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}

	workFile, err := modfile.ParseWork(path, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse go.work: %w", err)
	}

	var members []string
	for _, use := range workFile.Use {
		members = append(members, use.Path)
	}

	return members, nil
}

// parseCargoMembers reads [workspace].members of a Cargo.toml. Entries may
// end in a single trailing * segment, meaning all immediate subdirectories
// of the prefix; that is already glob syntax, so members pass through.
func parseCargoMembers(fsys filesystem.FileSystem, path string) ([]string, error) {
	manifest, err := readCargoManifest(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Cargo.toml: %w", err)
	}

	if manifest.Workspace == nil {
		return nil, nil
	}

	return manifest.Workspace.Members, nil
}

// parseMavenModules reads the <module> children of a pom.xml <modules>
// list. Each text content is an exact relative path.
func parseMavenModules(fsys filesystem.FileSystem, path string) ([]string, error) {
	project, err := readMavenProject(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pom.xml: %w", err)
	}

	return project.Modules.Module, nil
}

var gradleModuleRe = regexp.MustCompile(`['"](:[^'"]+)['"]`)

// parseGradleIncludes reads include statements of a settings.gradle or
// settings.gradle.kts. Colon-prefixed module identifiers map to same-named
// relative directories (:libs:core -> libs/core).
func parseGradleIncludes(fsys filesystem.FileSystem, path string) ([]string, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var members []string
	inInclude := false

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)

		if !inInclude {
			if !strings.HasPrefix(trimmed, "include") {
				continue
			}
			rest := strings.TrimPrefix(trimmed, "include")
			if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != '(' {
				// e.g. includeBuild, which is not a module list
				continue
			}
			trimmed = rest
			inInclude = true
		}

		for _, match := range gradleModuleRe.FindAllStringSubmatch(trimmed, -1) {
			id := strings.TrimPrefix(match[1], ":")
			members = append(members, strings.ReplaceAll(id, ":", "/"))
		}

		// Statements continue across lines while a trailing comma or an
		// unclosed parenthesized block is pending.
		if !strings.HasSuffix(trimmed, ",") &&
			!(strings.Contains(trimmed, "(") && !strings.Contains(trimmed, ")")) {
			inInclude = false
		}
	}

	return members, nil
}
