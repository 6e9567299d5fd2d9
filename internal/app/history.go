package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/blackwell-systems/cuality/internal/output"
	"github.com/blackwell-systems/cuality/internal/store"
)

var (
	historyFlagCommand string
	historyFlagLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs",
	Long: `History lists runs recorded with --record (or history.record: true),
newest first, with each metric compared against the previous run of the
same command on the same target.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFlagCommand, "command", "", "Only show runs of this command")
	historyCmd.Flags().IntVar(&historyFlagLimit, "limit", 10, "Number of runs to show (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

// metricDirection maps metric names to whether higher values are better.
// Unlisted metrics treat an increase as an improvement.
var metricDirection = map[string]bool{
	"mean_seconds":  false,
	"min_seconds":   false,
	"max_seconds":   false,
	"p90_seconds":   false,
	"skipped":       false,
	"total_ignores": false,
	"ignore_ratio":  false,
}

// recordRun stores a run and its metrics when history recording is enabled.
func recordRun(command, target string, metrics []store.Metric) error {
	if !cfg.History.Record {
		return nil
	}

	db, err := store.Open(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer func() { _ = db.Close() }()

	run, err := db.RecordRun(store.Run{Command: command, Target: target, Version: appVersion}, metrics)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	logger.WithField("run_id", run.RunID).Debug("run recorded")
	return nil
}

type historyEntry struct {
	Run     store.Run           `json:"run"`
	Metrics []store.Metric      `json:"metrics"`
	Deltas  []store.MetricDelta `json:"deltas,omitempty"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if _, err := os.Stat(cfg.History.DBPath); os.IsNotExist(err) {
		fmt.Fprintln(out, " No runs recorded. Re-run a command with --record to start a history.")
		return nil
	}

	db, err := store.Open(cfg.History.DBPath)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer func() { _ = db.Close() }()

	entries, err := loadHistory(db, historyFlagCommand, historyFlagLimit)
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(out, entries)
	}
	renderHistory(out, entries)
	return nil
}

func loadHistory(db *store.DB, command string, limit int) ([]historyEntry, error) {
	runs, err := db.ListRuns(command, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	entries := make([]historyEntry, 0, len(runs))
	for _, r := range runs {
		metrics, err := db.GetMetrics(r.ID)
		if err != nil {
			return nil, fmt.Errorf("loading metrics for run %s: %w", r.RunID, err)
		}
		entry := historyEntry{Run: r, Metrics: metrics}

		prev, err := db.PreviousRun(r)
		if err != nil {
			return nil, fmt.Errorf("loading previous run: %w", err)
		}
		if prev != nil {
			prevMetrics, err := db.GetMetrics(prev.ID)
			if err != nil {
				return nil, fmt.Errorf("loading metrics for run %s: %w", prev.RunID, err)
			}
			entry.Deltas = store.Diff(prevMetrics, metrics)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func renderHistory(w io.Writer, entries []historyEntry) {
	fmt.Fprintln(w, output.Section("Run History"))
	fmt.Fprintln(w)

	if len(entries) == 0 {
		fmt.Fprintln(w, " No matching runs.")
		return
	}

	for _, e := range entries {
		fmt.Fprintf(w, " %s %s  %s\n",
			output.StyleBold.Render(e.Run.Command),
			e.Run.Target,
			output.StyleMuted.Render(humanize.Time(e.Run.TakenAt)+" · "+e.Run.RunID[:8]),
		)

		deltas := make(map[string]store.MetricDelta, len(e.Deltas))
		for _, d := range e.Deltas {
			deltas[d.Name] = d
		}

		tbl := output.NewTable("Metric", "Value", "Trend")
		for _, m := range e.Metrics {
			trend := ""
			if d, ok := deltas[m.Name]; ok {
				higherIsBetter, known := metricDirection[m.Name]
				if !known {
					higherIsBetter = true
				}
				trend = output.TrendArrow(d.Delta, higherIsBetter)
			}
			tbl.AddRow(m.Name, formatMetric(m), trend)
		}
		tbl.Fprint(w)
		fmt.Fprintln(w)
	}
}

// formatMetric renders durations in seconds as elapsed time.
func formatMetric(m store.Metric) string {
	switch m.Name {
	case "mean_seconds", "min_seconds", "max_seconds", "p90_seconds":
		return output.Elapsed(secondsToDuration(m.Value))
	case "ignore_ratio":
		return fmt.Sprintf("%.2f%%", m.Value)
	default:
		return humanize.Commaf(m.Value)
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
