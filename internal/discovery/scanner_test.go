package discovery

import (
	"io/fs"
	"reflect"
	"testing"

	"github.com/jakoblorz/go-projscan/internal/filesystem"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

func newTestScanner(mfs *filesystem.MockFileSystem, cfg *Config) *Scanner {
	return New(mfs, cfg, WithLogger(testLogger()))
}

func scanPaths(t *testing.T, s *Scanner, root string) []string {
	t.Helper()

	projects, err := s.Scan(root)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	var paths []string
	for _, p := range projects {
		paths = append(paths, p.Path)
	}
	return paths
}

func TestScan_SingleNodePackageStopsTraversal(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/apps/app/package.json", []byte(`{"name":"app"}`))
	mfs.AddFile("/scan/apps/app/packages/lib/package.json", []byte(`{"name":"lib"}`))

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan/apps")
	if !reflect.DeepEqual(paths, []string{"/scan/apps/app"}) {
		t.Fatalf("expected only the outer package, got %v", paths)
	}
}

func TestScan_GoWorkspaceMembers(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/go/go.work", []byte("go 1.24\n\nuse (\n\t./modA\n\t./modB\n)\n"))
	mfs.AddFile("/scan/go/modA/go.mod", []byte("module example.com/modA\n"))
	mfs.AddFile("/scan/go/modB/go.mod", []byte("module example.com/modB\n"))

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan/go")
	expected := []string{"/scan/go", "/scan/go/modA", "/scan/go/modB"}
	if !reflect.DeepEqual(paths, expected) {
		t.Fatalf("expected %v, got %v", expected, paths)
	}
}

func TestScan_CargoWorkspaceMembers(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/cargo/Cargo.toml", []byte("[workspace]\nmembers = [\"crates/*\"]\n"))
	mfs.AddFile("/scan/cargo/crates/a/Cargo.toml", []byte("[package]\nname = \"a\"\n"))
	mfs.AddFile("/scan/cargo/crates/b/Cargo.toml", []byte("[package]\nname = \"b\"\n"))

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan/cargo")
	expected := []string{"/scan/cargo", "/scan/cargo/crates/a", "/scan/cargo/crates/b"}
	if !reflect.DeepEqual(paths, expected) {
		t.Fatalf("expected %v, got %v", expected, paths)
	}
}

func TestScan_DocsOnlyProject(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/docs-only/docs/readme.md", []byte("# docs\n"))

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan/docs-only")
	if !reflect.DeepEqual(paths, []string{"/scan/docs-only"}) {
		t.Fatalf("expected the docs-only root, got %v", paths)
	}
}

func TestScan_NodeWorkspaceMembers(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/mono/package.json", []byte(`{"name":"mono","workspaces":["packages/*"]}`))
	mfs.AddFile("/scan/mono/packages/a/package.json", []byte(`{"name":"a"}`))
	mfs.AddFile("/scan/mono/packages/b/package.json", []byte(`{"name":"b"}`))
	mfs.AddFile("/scan/mono/scripts/deploy.sh", []byte("#!/bin/sh\n"))

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan/mono")
	expected := []string{"/scan/mono", "/scan/mono/packages/a", "/scan/mono/packages/b"}
	if !reflect.DeepEqual(paths, expected) {
		t.Fatalf("expected root and members only, got %v", paths)
	}
}

func TestScan_PnpmWorkspaceMembers(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/pnpm/pnpm-workspace.yaml", []byte("packages:\n  - 'apps/*'\n"))
	mfs.AddFile("/scan/pnpm/apps/web/package.json", []byte(`{"name":"web"}`))

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan/pnpm")
	expected := []string{"/scan/pnpm", "/scan/pnpm/apps/web"}
	if !reflect.DeepEqual(paths, expected) {
		t.Fatalf("expected %v, got %v", expected, paths)
	}
}

func TestScan_GradleModules(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/gradle/settings.gradle", []byte("include ':app', ':lib'\n"))
	mfs.AddFile("/scan/gradle/app/build.gradle", []byte(""))
	mfs.AddFile("/scan/gradle/lib/build.gradle", []byte(""))

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan/gradle")
	expected := []string{"/scan/gradle", "/scan/gradle/app", "/scan/gradle/lib"}
	if !reflect.DeepEqual(paths, expected) {
		t.Fatalf("expected %v, got %v", expected, paths)
	}
}

func TestScan_MavenModules(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/maven/pom.xml", []byte(`<?xml version="1.0"?>
<project>
  <modules>
    <module>core</module>
  </modules>
</project>`))
	mfs.AddFile("/scan/maven/core/pom.xml", []byte(`<?xml version="1.0"?><project></project>`))

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan/maven")
	expected := []string{"/scan/maven", "/scan/maven/core"}
	if !reflect.DeepEqual(paths, expected) {
		t.Fatalf("expected %v, got %v", expected, paths)
	}
}

func TestScan_NegativeOnlyNeverRoot(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddDir("/scan/junk/node_modules")
	mfs.AddDir("/scan/junk/dist")

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan/junk")
	if len(paths) != 0 {
		t.Fatalf("expected no projects, got %v", paths)
	}
}

func TestScan_StopsAtVcsBoundary(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddDir("/scan/repo/.git")
	mfs.AddFile("/scan/repo/sub/package.json", []byte(`{"name":"sub"}`))

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan")
	if len(paths) != 0 {
		t.Fatalf("VCS boundary must not be crossed, got %v", paths)
	}

	cfg := DefaultConfig()
	cfg.StopAtVcsRoot = false
	paths = scanPaths(t, newTestScanner(mfs, cfg), "/scan")
	if !reflect.DeepEqual(paths, []string{"/scan/repo/sub"}) {
		t.Fatalf("expected nested package with VCS stop disabled, got %v", paths)
	}
}

func TestScan_NestedAlwaysRespectsVcsBoundary(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddDir("/scan/repo/.git")
	mfs.AddFile("/scan/repo/go.mod", []byte("module example.com/repo\n"))
	mfs.AddFile("/scan/repo/sub/package.json", []byte(`{"name":"sub"}`))

	cfg := DefaultConfig()
	cfg.IncludeNestedPackages = NestedAlways
	paths := scanPaths(t, newTestScanner(mfs, cfg), "/scan")
	if !reflect.DeepEqual(paths, []string{"/scan/repo"}) {
		t.Fatalf("always mode must not descend past the VCS boundary, got %v", paths)
	}

	cfg = DefaultConfig()
	cfg.IncludeNestedPackages = NestedAlways
	cfg.StopAtVcsRoot = false
	paths = scanPaths(t, newTestScanner(mfs, cfg), "/scan")
	expected := []string{"/scan/repo", "/scan/repo/sub"}
	if !reflect.DeepEqual(paths, expected) {
		t.Fatalf("expected descent with VCS stop disabled, got %v", paths)
	}
}

func TestScan_VcsRootWithManifestIsEmitted(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddDir("/scan/repo/.git")
	mfs.AddFile("/scan/repo/go.mod", []byte("module example.com/repo\n"))
	mfs.AddFile("/scan/repo/inner/go.mod", []byte("module example.com/inner\n"))

	projects, err := newTestScanner(mfs, nil).Scan("/scan")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}

	if len(projects) != 1 || projects[0].Path != "/scan/repo" {
		t.Fatalf("expected only the repo root, got %+v", projects)
	}
	if !projects[0].HasGitMarker {
		t.Fatal("expected the git marker on the emitted record")
	}
}

func TestScan_MaxDepth(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/a/b/c/package.json", []byte(`{"name":"deep"}`))

	cfg := DefaultConfig()
	cfg.MaxDepth = 2
	paths := scanPaths(t, newTestScanner(mfs, cfg), "/scan")
	if len(paths) != 0 {
		t.Fatalf("expected depth bound to hide the project, got %v", paths)
	}

	cfg = DefaultConfig()
	cfg.MaxDepth = 3
	paths = scanPaths(t, newTestScanner(mfs, cfg), "/scan")
	if !reflect.DeepEqual(paths, []string{"/scan/a/b/c"}) {
		t.Fatalf("expected the project within the bound, got %v", paths)
	}
}

func TestScan_IgnorePatterns(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/tree/node_modules/pkg/package.json", []byte(`{"name":"pkg"}`))
	mfs.AddFile("/scan/tree/real/package.json", []byte(`{"name":"real"}`))

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan/tree")
	if !reflect.DeepEqual(paths, []string{"/scan/tree/real"}) {
		t.Fatalf("expected node_modules to be skipped, got %v", paths)
	}
}

func TestScan_DenylistPaths(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/tree/skipme/package.json", []byte(`{"name":"skip"}`))
	mfs.AddFile("/scan/tree/keep/package.json", []byte(`{"name":"keep"}`))

	cfg := DefaultConfig()
	cfg.DenylistPaths = []string{"/scan/tree/skipme", "[malformed"}
	paths := scanPaths(t, newTestScanner(mfs, cfg), "/scan/tree")
	if !reflect.DeepEqual(paths, []string{"/scan/tree/keep"}) {
		t.Fatalf("expected denylisted path to be skipped, got %v", paths)
	}
}

func TestScan_RootGitignore(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/tree/.gitignore", []byte("generated/\n"))
	mfs.AddFile("/scan/tree/generated/package.json", []byte(`{"name":"gen"}`))
	mfs.AddFile("/scan/tree/kept/package.json", []byte(`{"name":"kept"}`))

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan/tree")
	if !reflect.DeepEqual(paths, []string{"/scan/tree/kept"}) {
		t.Fatalf("expected gitignored directory to be skipped, got %v", paths)
	}

	cfg := DefaultConfig()
	cfg.UseGitignore = false
	paths = scanPaths(t, newTestScanner(mfs, cfg), "/scan/tree")
	expected := []string{"/scan/tree/generated", "/scan/tree/kept"}
	if !reflect.DeepEqual(paths, expected) {
		t.Fatalf("expected both projects with gitignore disabled, got %v", paths)
	}
}

func TestScan_UnreadableRootFails(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddDir("/scan/locked")
	mfs.SetReadDirError("/scan/locked", fs.ErrPermission)

	if _, err := newTestScanner(mfs, nil).Scan("/scan/locked"); err == nil {
		t.Fatal("expected error for unreadable scan root")
	}
}

func TestScan_MissingRootFails(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()

	if _, err := newTestScanner(mfs, nil).Scan("/nope"); err == nil {
		t.Fatal("expected error for missing scan root")
	}
}

func TestScan_UnreadableSubdirectoryIsSkipped(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddDir("/scan/tree/locked")
	mfs.SetReadDirError("/scan/tree/locked", fs.ErrPermission)
	mfs.AddFile("/scan/tree/ok/package.json", []byte(`{"name":"ok"}`))

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan/tree")
	if !reflect.DeepEqual(paths, []string{"/scan/tree/ok"}) {
		t.Fatalf("expected unreadable subtree to degrade silently, got %v", paths)
	}
}

func TestScan_SymlinksSkippedByDefault(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/elsewhere/proj/package.json", []byte(`{"name":"proj"}`))
	mfs.AddSymlink("/scan/tree/link", "/elsewhere/proj")
	mfs.AddFile("/scan/tree/own/package.json", []byte(`{"name":"own"}`))

	paths := scanPaths(t, newTestScanner(mfs, nil), "/scan/tree")
	if !reflect.DeepEqual(paths, []string{"/scan/tree/own"}) {
		t.Fatalf("expected symlink to be skipped, got %v", paths)
	}
}

func TestScan_SymlinkRootSkippedWithWarning(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/real/proj/package.json", []byte(`{"name":"proj"}`))
	mfs.AddSymlink("/link", "/real/proj")

	logger, hook := logrustest.NewNullLogger()
	scanner := New(mfs, nil, WithLogger(logger))

	projects, err := scanner.Scan("/link")
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(projects) != 0 {
		t.Fatalf("expected empty result for symlink root, got %+v", projects)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning for the skipped symlink root, got %+v", entry)
	}
}

func TestScan_SymlinkCycleTerminates(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/tree/proj/package.json", []byte(`{"name":"proj"}`))
	mfs.AddSymlink("/scan/tree/loop", "/scan/tree")

	cfg := DefaultConfig()
	cfg.FollowSymlinks = true
	paths := scanPaths(t, newTestScanner(mfs, cfg), "/scan/tree")
	if !reflect.DeepEqual(paths, []string{"/scan/tree/proj"}) {
		t.Fatalf("expected cycle guard to terminate cleanly, got %v", paths)
	}
}

func TestScan_FollowedSymlinkDiscoversTarget(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/elsewhere/proj/package.json", []byte(`{"name":"proj"}`))
	mfs.AddSymlink("/scan/tree/link", "/elsewhere/proj")

	cfg := DefaultConfig()
	cfg.FollowSymlinks = true
	paths := scanPaths(t, newTestScanner(mfs, cfg), "/scan/tree")
	if !reflect.DeepEqual(paths, []string{"/scan/tree/link"}) {
		t.Fatalf("expected symlinked project to be discovered, got %v", paths)
	}
}

func TestScan_NoDuplicatePaths(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/mono/package.json", []byte(`{"name":"mono","workspaces":["packages/*"]}`))
	mfs.AddFile("/scan/mono/packages/a/package.json", []byte(`{"name":"a"}`))

	cfg := DefaultConfig()
	cfg.IncludeNestedPackages = NestedAlways
	paths := scanPaths(t, newTestScanner(mfs, cfg), "/scan/mono")

	seen := map[string]bool{}
	for _, p := range paths {
		if seen[p] {
			t.Fatalf("path %s appears twice in %v", p, paths)
		}
		seen[p] = true
	}
}

func TestScan_NestedNeverSkipsExpansion(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/mono/package.json", []byte(`{"name":"mono","workspaces":["packages/*"]}`))
	mfs.AddFile("/scan/mono/packages/a/package.json", []byte(`{"name":"a"}`))

	cfg := DefaultConfig()
	cfg.IncludeNestedPackages = NestedNever
	paths := scanPaths(t, newTestScanner(mfs, cfg), "/scan/mono")
	if !reflect.DeepEqual(paths, []string{"/scan/mono"}) {
		t.Fatalf("expected only the monorepo root, got %v", paths)
	}
}

func TestScan_Deterministic(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.AddFile("/scan/tree/a/package.json", []byte(`{"name":"a"}`))
	mfs.AddFile("/scan/tree/b/go.mod", []byte("module example.com/b\n"))
	mfs.AddFile("/scan/tree/c/d/Cargo.toml", []byte("[package]\nname = \"d\"\n"))
	mfs.AddFile("/scan/tree/c/d/Cargo.lock", []byte(""))

	scanner := newTestScanner(mfs, nil)

	first := scanPaths(t, scanner, "/scan/tree")
	for i := 0; i < 10; i++ {
		again := scanPaths(t, newTestScanner(mfs, nil), "/scan/tree")
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("non-deterministic result: %v vs %v", first, again)
		}
	}
}

func TestScan_RelativeRootResolvesAgainstCwd(t *testing.T) {
	mfs := filesystem.NewMockFileSystem()
	mfs.SetCurrentDir("/scan")
	mfs.AddFile("/scan/proj/go.mod", []byte("module example.com/proj\n"))

	paths := scanPaths(t, newTestScanner(mfs, nil), "proj")
	if !reflect.DeepEqual(paths, []string{"/scan/proj"}) {
		t.Fatalf("expected relative root to resolve, got %v", paths)
	}
}
