package cli

import (
	"fmt"

	"github.com/jakoblorz/go-projscan/internal/filesystem"
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command
func NewRootCommand(fs filesystem.FileSystem) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "projscan [path]",
		Short: "Discover project roots in a directory tree",
		Long: `A CLI tool that discovers projects inside a directory tree.

Directories are classified as project roots from manifests, lockfiles,
VCS boundaries, monorepo workspace declarations and docs-only layouts,
without double-counting nested packages or vendored code.`,
		SilenceUsage: true,
		Args:         cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default to `projscan scan` when no subcommand is provided.
			return (&ScanCommand{fs: fs}).Run(cmd, args)
		},
	}

	addScanFlags(rootCmd)
	rootCmd.AddCommand(NewScanCommand(fs))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	fs := filesystem.NewOSFileSystem()

	rootCmd := NewRootCommand(fs)

	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}

	return nil
}
