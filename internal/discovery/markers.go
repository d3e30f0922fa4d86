package discovery

import (
	"encoding/json"
	"encoding/xml"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/jakoblorz/go-projscan/internal/filesystem"
)

// markerKind identifies which workspace-declaration syntax a monorepo
// marker file uses. The traversal controller stays ecosystem-agnostic;
// adding an ecosystem means adding a kind and a parser here.
type markerKind int

const (
	markerUnknown markerKind = iota
	markerPnpmWorkspace
	markerPackageJSON
	markerLerna
	markerGoWork
	markerCargo
	markerMavenPom
	markerGradleSettings
)

func markerKindFor(name string) markerKind {
	switch name {
	case "pnpm-workspace.yaml":
		return markerPnpmWorkspace
	case "package.json":
		return markerPackageJSON
	case "lerna.json":
		return markerLerna
	case "go.work":
		return markerGoWork
	case "Cargo.toml":
		return markerCargo
	case "pom.xml":
		return markerMavenPom
	case "settings.gradle", "settings.gradle.kts":
		return markerGradleSettings
	}
	return markerUnknown
}

// packageJSON represents a minimal subset of package.json.
// Workspaces can be an array or an object with a packages array.
// See https://docs.npmjs.com/cli/v10/using-npm/workspaces.
type packageJSON struct {
	Name       string      `json:"name"`
	Workspaces interface{} `json:"workspaces"`
}

func readPackageJSON(fs filesystem.FileSystem, path string) (packageJSON, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return packageJSON{}, err
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return packageJSON{}, err
	}

	return pkg, nil
}

func extractWorkspaces(pkg packageJSON) []string {
	switch v := pkg.Workspaces.(type) {
	case nil:
		return nil
	case []interface{}:
		return convertWorkspaceArray(v)
	case map[string]interface{}:
		if raw, ok := v["packages"]; ok {
			if arr, ok := raw.([]interface{}); ok {
				return convertWorkspaceArray(arr)
			}
		}
	}
	return nil
}

func convertWorkspaceArray(values []interface{}) []string {
	var result []string
	for _, item := range values {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			result = append(result, s)
		}
	}
	return result
}

// cargoManifest represents the [workspace] table of a Cargo.toml.
type cargoManifest struct {
	Workspace *cargoWorkspace `toml:"workspace"`
}

type cargoWorkspace struct {
	Members []string `toml:"members"`
}

func readCargoManifest(fs filesystem.FileSystem, path string) (cargoManifest, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return cargoManifest{}, err
	}

	var manifest cargoManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return cargoManifest{}, err
	}

	return manifest, nil
}

// mavenProject represents the <modules> list of a pom.xml.
type mavenProject struct {
	XMLName xml.Name `xml:"project"`
	Modules struct {
		Module []string `xml:"module"`
	} `xml:"modules"`
}

func readMavenProject(fs filesystem.FileSystem, path string) (mavenProject, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return mavenProject{}, err
	}

	var project mavenProject
	if err := xml.Unmarshal(data, &project); err != nil {
		return mavenProject{}, err
	}

	return project, nil
}

// lernaConfig represents the packages list of a lerna.json.
type lernaConfig struct {
	Packages []string `json:"packages"`
}

func readLernaConfig(fs filesystem.FileSystem, path string) (lernaConfig, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return lernaConfig{}, err
	}

	var config lernaConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return lernaConfig{}, err
	}

	return config, nil
}
