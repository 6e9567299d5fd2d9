// Package app contains the Cobra command tree for cuality.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/cuality/internal/config"
	"github.com/blackwell-systems/cuality/internal/logging"
	"github.com/blackwell-systems/cuality/internal/output"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagRecord  bool
	flagConfig  string

	// Set by PersistentPreRunE before any subcommand runs.
	cfg    *config.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "cuality",
	Short: "Delivery and code-quality reports for Python repositories",
	Long: `cuality inspects a repository's history and layout and reports on it:
how long feature branches live before they merge, where each package keeps
its migrations, how pull requests were resolved, and how many lines carry
linter ignore comments.

Reports go to stdout or CSV; diagnostics go to stderr.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "cuality", appVersion)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Use a subcommand:")
		fmt.Fprintln(out, "  statistics   Time from branch point to merge")
		fmt.Fprintln(out, "  analyze      Packages and their migrations directories")
		fmt.Fprintln(out, "  pulls        Export pull requests to CSV")
		fmt.Fprintln(out, "  ignore-stat  Count linter ignore comments per file")
		fmt.Fprintln(out, "  history      Show recorded runs")
		return nil
	},
}

// setup loads configuration and builds the logger and output styles.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if flagRecord {
		cfg.History.Record = true
	}

	output.ConfigureColor(cfg.Output.Color && !flagNoColor)
	logger = logging.New(cmd.ErrOrStderr(), flagVerbose, !output.IsNoColor())
	return nil
}

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/cuality/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging on stderr")
	rootCmd.PersistentFlags().BoolVar(&flagRecord, "record", false, "Record this run in the history database")
}
