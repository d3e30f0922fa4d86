package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/jakoblorz/go-projscan/internal/discovery"
	"github.com/jakoblorz/go-projscan/internal/filesystem"
	"github.com/jakoblorz/go-projscan/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	pathStyle   = lipgloss.NewStyle().Faint(true)
)

// ScanCommand handles the scan command
type ScanCommand struct {
	fs           filesystem.FileSystem
	stdoutWriter io.Writer
	logger       logrus.FieldLogger
}

// NewScanCommand creates a new scan command
func NewScanCommand(fs filesystem.FileSystem) *cobra.Command {
	cmd := &ScanCommand{fs: fs}

	cobraCmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a directory tree for project roots",
		Long: `Walks the given directory (default: the working directory) and prints
every discovered project root.

Monorepo roots are expanded through their workspace declarations
(pnpm-workspace.yaml, package.json workspaces, lerna.json, go.work,
Cargo.toml, pom.xml, settings.gradle), so workspace members are listed
alongside their monorepo root.`,
		Example: `  # Scan the current directory
  projscan scan

  # Scan a code folder, following symlinks
  projscan scan ~/code --follow-symlinks

  # Output JSON for scripting
  projscan scan ~/code --format json > projects.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: cmd.Run,
	}

	addScanFlags(cobraCmd)

	return cobraCmd
}

// addScanFlags registers the scan flags. The root command registers them
// too so `projscan [path]` behaves exactly like `projscan scan [path]`.
func addScanFlags(cmd *cobra.Command) {
	defaults := discovery.DefaultConfig()

	cmd.Flags().Int("max-depth", defaults.MaxDepth, "Maximum traversal depth")
	cmd.Flags().StringSlice("ignore", nil, "Additional directory-name patterns to skip")
	cmd.Flags().StringSlice("deny", nil, "Path patterns always excluded from traversal")
	cmd.Flags().Bool("follow-symlinks", false, "Descend through symlinked directories")
	cmd.Flags().String("nested", string(defaults.IncludeNestedPackages),
		"Nested package discovery: never, when-monorepo or always")
	cmd.Flags().Bool("cross-vcs-roots", false, "Keep descending past version-control boundaries")
	cmd.Flags().Bool("no-gitignore", false, "Do not honor the scan root's .gitignore")
	cmd.Flags().String("format", "text", "Output format: text or json")
	cmd.Flags().Bool("verbose", false, "Enable debug logging")
}

// Run executes the scan command
func (c *ScanCommand) Run(cmd *cobra.Command, args []string) error {
	stdout := c.stdoutWriter
	if stdout == nil {
		stdout = os.Stdout
	}

	rootPath := "."
	if len(args) > 0 {
		rootPath = args[0]
	}

	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid --format value: %s", format)
	}

	logger := c.logger
	if logger == nil {
		logger = newLogger(cmd)
	}

	scanner := discovery.New(c.fs, cfg, discovery.WithLogger(logger))
	projects, err := scanner.Scan(rootPath)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if format == "json" {
		return outputJSON(stdout, projects)
	}
	return outputText(stdout, projects)
}

func configFromFlags(cmd *cobra.Command) (*discovery.Config, error) {
	cfg := discovery.DefaultConfig()

	if maxDepth, err := cmd.Flags().GetInt("max-depth"); err == nil {
		cfg.MaxDepth = maxDepth
	}
	if ignore, err := cmd.Flags().GetStringSlice("ignore"); err == nil {
		cfg.IgnorePatterns = append(cfg.IgnorePatterns, ignore...)
	}
	if deny, err := cmd.Flags().GetStringSlice("deny"); err == nil {
		cfg.DenylistPaths = append(cfg.DenylistPaths, deny...)
	}
	if follow, err := cmd.Flags().GetBool("follow-symlinks"); err == nil {
		cfg.FollowSymlinks = follow
	}
	if crossVcs, err := cmd.Flags().GetBool("cross-vcs-roots"); err == nil {
		cfg.StopAtVcsRoot = !crossVcs
	}
	if noGitignore, err := cmd.Flags().GetBool("no-gitignore"); err == nil {
		cfg.UseGitignore = !noGitignore
	}

	if nested, err := cmd.Flags().GetString("nested"); err == nil {
		switch discovery.NestedPackagesMode(nested) {
		case discovery.NestedNever, discovery.NestedWhenMonorepo, discovery.NestedAlways:
			cfg.IncludeNestedPackages = discovery.NestedPackagesMode(nested)
		default:
			return nil, fmt.Errorf("invalid --nested value: %s", nested)
		}
	}

	return cfg, nil
}

func newLogger(cmd *cobra.Command) logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	if verbose, err := cmd.Flags().GetBool("verbose"); err == nil && verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	return logger
}

// outputText prints the discovered projects in human-readable form
func outputText(w io.Writer, projects []*models.ProjectDirectory) error {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects found.")
		return nil
	}

	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Discovered %d project(s)", len(projects))))
	fmt.Fprintln(w)

	for i, project := range projects {
		prefix := "├─"
		if i == len(projects)-1 {
			prefix = "└─"
		}

		marker := ""
		if project.HasGitMarker {
			marker = " (git)"
		}

		fmt.Fprintf(w, "%s %s%s %s\n", prefix, project.Name, marker, pathStyle.Render(project.Path))
	}

	return nil
}

// outputJSON prints the discovered projects as indented JSON
func outputJSON(w io.Writer, projects []*models.ProjectDirectory) error {
	output := struct {
		Projects []*models.ProjectDirectory `json:"projects"`
	}{Projects: projects}

	jsonData, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	fmt.Fprintln(w, string(jsonData))
	return nil
}
