package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blackwell-systems/cuality/internal/logging"
	"github.com/blackwell-systems/cuality/internal/vcs"
)

// Analyzer computes branch latencies from repository history.
type Analyzer struct {
	History History
	Log     logrus.FieldLogger
}

// NewAnalyzer returns an Analyzer over h. A nil log discards output.
func NewAnalyzer(h History, log logrus.FieldLogger) *Analyzer {
	if log == nil {
		log = logging.Discard()
	}
	return &Analyzer{History: h, Log: log}
}

// Analyze measures every merge on branch against trunk. Any git failure
// aborts the whole analysis; merges with no recoverable branch point are
// skipped and counted.
func (a *Analyzer) Analyze(ctx context.Context, branch, trunk string) (Report, error) {
	report := Report{Branch: branch, Trunk: trunk}

	merges, err := a.History.MergeCommits(ctx, branch)
	if err != nil {
		return Report{}, fmt.Errorf("listing merge commits on %s: %w", branch, err)
	}
	report.Merges = len(merges)

	for _, m := range merges {
		base, ok, err := a.BranchPoint(ctx, m, trunk)
		if err != nil {
			return Report{}, err
		}
		if !ok {
			report.Skipped++
			a.Log.WithField("commit", m.Commit).Debug("no branch point, skipping merge")
			continue
		}

		branchedAt, err := a.History.CommitTime(ctx, base)
		if err != nil {
			return Report{}, fmt.Errorf("reading time of %s: %w", base, err)
		}

		s := Sample{
			Commit:      m.Commit,
			BranchPoint: base,
			BranchedAt:  branchedAt,
			MergedAt:    m.CommittedAt,
			Latency:     Latency(m, branchedAt),
		}
		if s.Latency < 0 {
			a.Log.WithFields(logrus.Fields{
				"commit":       m.Commit,
				"branch_point": base,
				"latency":      s.Latency,
			}).Warn("negative latency, branch point approximation is off for this merge")
		}
		report.Samples = append(report.Samples, s)
	}

	latencies := make([]time.Duration, len(report.Samples))
	for i, s := range report.Samples {
		latencies[i] = s.Latency
	}
	report.Summary = Summarize(latencies)

	a.Log.WithFields(logrus.Fields{
		"branch":  branch,
		"merges":  report.Merges,
		"skipped": report.Skipped,
	}).Debug("latency analysis complete")

	return report, nil
}

// BranchPoint approximates where the branch merged by m diverged from trunk:
// the merge-base of m's first parent and trunk. ok is false for commits with
// fewer than two parents and for histories with no common ancestor.
func (a *Analyzer) BranchPoint(ctx context.Context, m vcs.Merge, trunk string) (string, bool, error) {
	if len(m.Parents) < 2 {
		return "", false, nil
	}
	base, ok, err := a.History.MergeBase(ctx, m.Parents[0], trunk)
	if err != nil {
		return "", false, fmt.Errorf("merge-base of %s and %s: %w", m.Parents[0], trunk, err)
	}
	return base, ok, nil
}

// Latency is the time from the branch point to the merge. It is not clamped.
func Latency(m vcs.Merge, branchedAt time.Time) time.Duration {
	return m.CommittedAt.Sub(branchedAt)
}
