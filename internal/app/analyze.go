package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/cuality/internal/project"
)

var analyzeFlagPath string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Packages and their migrations directories",
	Long: `Analyze lists the packages directly under a project root (directories
holding a package descriptor such as setup.py) and, for each, the first
migrations directory found depth-first.

A missing root is reported on stderr and produces no output.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlagPath, "path", ".", "Project root to scan")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	tree, err := project.Scan(analyzeFlagPath, project.Options{
		Markers:      cfg.Analyze.Markers,
		MigrationDir: cfg.Analyze.MigrationDir,
	})
	if err != nil {
		return fmt.Errorf("scanning %s: %w", analyzeFlagPath, err)
	}

	if !tree.Exists {
		logger.WithField("path", tree.Root).Warn("project root not found, nothing to analyze")
		return nil
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), tree)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), tree.Render())
	return err
}
