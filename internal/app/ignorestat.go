package app

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/cuality/internal/lintignore"
	"github.com/blackwell-systems/cuality/internal/output"
	"github.com/blackwell-systems/cuality/internal/store"
)

var (
	ignoreStatFlagOutput           string
	ignoreStatFlagSuffix           string
	ignoreStatFlagRespectGitignore bool
)

var ignoreStatCmd = &cobra.Command{
	Use:   "ignore-stat <project-dir>",
	Short: "Count linter ignore comments per file",
	Long: `Ignore-stat walks a project, counts code lines and linter/type-checker
suppression comments (noqa, pylint, type: ignore, nosec, mypy, pragma) in
every source file, and writes one CSV row per file.

An unreadable file aborts the audit and no CSV is written.`,
	Example: `  cuality ignore-stat ./src
  cuality ignore-stat ./src --output audit.csv --respect-gitignore`,
	Args: cobra.ExactArgs(1),
	RunE: runIgnoreStat,
}

func init() {
	ignoreStatCmd.Flags().StringVarP(&ignoreStatFlagOutput, "output", "o", "", "CSV destination (default from config: ignore_stat.csv)")
	ignoreStatCmd.Flags().StringVar(&ignoreStatFlagSuffix, "suffix", "", "Source file suffix (default from config: .py)")
	ignoreStatCmd.Flags().BoolVar(&ignoreStatFlagRespectGitignore, "respect-gitignore", false, "Skip paths matched by <project-dir>/.gitignore")
	rootCmd.AddCommand(ignoreStatCmd)
}

func runIgnoreStat(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", args[0], err)
	}

	dest := cfg.IgnoreStat.Output
	if ignoreStatFlagOutput != "" {
		dest = ignoreStatFlagOutput
	}
	opts := lintignore.Options{
		Suffix:           cfg.IgnoreStat.Suffix,
		RespectGitignore: cfg.IgnoreStat.RespectGitignore || ignoreStatFlagRespectGitignore,
		Log:              logger,
	}
	if ignoreStatFlagSuffix != "" {
		opts.Suffix = ignoreStatFlagSuffix
	}

	audit, err := lintignore.Run(root, opts)
	if err != nil {
		return fmt.Errorf("auditing %s: %w", root, err)
	}
	if err := audit.WriteCSV(dest); err != nil {
		return err
	}

	if err := recordRun("ignore-stat", root, []store.Metric{
		{Name: "files", Value: float64(len(audit.Files))},
		{Name: "total_lines", Value: float64(audit.TotalLines)},
		{Name: "total_ignores", Value: float64(audit.TotalIgnores)},
		{Name: "ignore_ratio", Value: audit.IgnoreRatio() * 100},
	}); err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), audit)
	}

	renderIgnoreStat(cmd.OutOrStdout(), audit, dest)
	return nil
}

// topIgnoredLimit caps the files listed under the audit summary.
const topIgnoredLimit = 10

func renderIgnoreStat(w io.Writer, audit *lintignore.Audit, dest string) {
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Files"), output.StyleValue.Render(humanize.Comma(int64(len(audit.Files)))))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Total lines"), output.StyleValue.Render(humanize.Comma(int64(audit.TotalLines))))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Total ignores"), output.StyleValue.Render(humanize.Comma(int64(audit.TotalIgnores))))
	fmt.Fprintf(w, " %s %s\n", output.StyleLabel.Render("Ignore ratio"), output.StyleValue.Render(fmt.Sprintf("%.2f%%", audit.IgnoreRatio()*100)))

	if top := audit.TopIgnored(topIgnoredLimit); len(top) > 0 {
		tbl := output.NewTable("File", "Lines", "Ignores").AlignRight(1, 2).Indent(1)
		for _, f := range top {
			tbl.AddRow(f.File, humanize.Comma(int64(f.TotalLines)), humanize.Comma(int64(f.TotalIgnores)))
		}
		fmt.Fprintln(w)
		tbl.Fprint(w)
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, " %s\n", output.StyleMuted.Render("Wrote "+dest))
}
