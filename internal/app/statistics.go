package app

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/cuality/internal/delivery"
	"github.com/blackwell-systems/cuality/internal/output"
	"github.com/blackwell-systems/cuality/internal/store"
	"github.com/blackwell-systems/cuality/internal/vcs"
)

var (
	statisticsFlagPath   string
	statisticsFlagTrunk  string
	statisticsFlagBranch string
)

var statisticsCmd = &cobra.Command{
	Use:   "statistics",
	Short: "Time from branch point to merge",
	Long: `Statistics lists the merge commits on a branch, approximates where each
merged branch left the trunk (the merge-base of the merge's first parent and
the trunk), and summarizes the time between that point and the merge.

The branch point is an estimate. Latencies can come out negative when the
estimate is wrong; they are reported as-is.`,
	Args: cobra.NoArgs,
	RunE: runStatistics,
}

func init() {
	statisticsCmd.Flags().StringVar(&statisticsFlagPath, "path", ".", "Repository to analyze")
	statisticsCmd.Flags().StringVar(&statisticsFlagTrunk, "trunk", "", "Trunk branch (default from config: main)")
	statisticsCmd.Flags().StringVar(&statisticsFlagBranch, "branch", "", "Branch whose merges are measured (default: the trunk)")
	rootCmd.AddCommand(statisticsCmd)
}

func runStatistics(cmd *cobra.Command, args []string) error {
	trunk := cfg.Statistics.Trunk
	if statisticsFlagTrunk != "" {
		trunk = statisticsFlagTrunk
	}
	branch := cfg.Statistics.Branch
	if statisticsFlagBranch != "" {
		branch = statisticsFlagBranch
	}
	if branch == "" {
		branch = trunk
	}

	root, err := filepath.Abs(statisticsFlagPath)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", statisticsFlagPath, err)
	}

	repo := vcs.Open(root)
	repo.Binary = cfg.Statistics.Git
	analyzer := delivery.NewAnalyzer(repo, logger)
	report, err := analyzer.Analyze(cmd.Context(), branch, trunk)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"merges":  report.Merges,
		"samples": len(report.Samples),
		"skipped": report.Skipped,
	}).Info("branch latency analyzed")

	if err := recordRun("statistics", root, latencyMetrics(report)); err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}
	renderStatistics(cmd.OutOrStdout(), report.Summary)
	return nil
}

func renderStatistics(w io.Writer, s delivery.Summary) {
	lines := []struct {
		label string
		value time.Duration
	}{
		{"Average Time", s.Mean},
		{"Minimum Time", s.Min},
		{"Maximum Time", s.Max},
		{"90th Percentile Time", s.P90},
	}
	for _, l := range lines {
		value := "no data"
		if s.HasData() {
			value = output.Elapsed(l.value)
		}
		fmt.Fprintf(w, "%s: %s\n", l.label, value)
	}
}

func latencyMetrics(r delivery.Report) []store.Metric {
	metrics := []store.Metric{
		{Name: "samples", Value: float64(r.Summary.Count)},
		{Name: "skipped", Value: float64(r.Skipped)},
	}
	if !r.Summary.HasData() {
		return metrics
	}
	return append(metrics,
		store.Metric{Name: "mean_seconds", Value: r.Summary.Mean.Seconds()},
		store.Metric{Name: "min_seconds", Value: r.Summary.Min.Seconds()},
		store.Metric{Name: "max_seconds", Value: r.Summary.Max.Seconds()},
		store.Metric{Name: "p90_seconds", Value: r.Summary.P90.Seconds()},
	)
}
