// Package delivery measures how long feature branches live before they are
// merged. The branch point of a merge is approximated as the merge-base of
// the merge's first parent and the trunk: once history has been merged the
// real branch-creation commit is no longer recoverable, so the result is an
// estimate and can even be negative.
package delivery

import (
	"context"
	"time"

	"github.com/blackwell-systems/cuality/internal/vcs"
)

// History is the slice of version-control behavior the analyzer needs.
// *vcs.Repo satisfies it.
type History interface {
	MergeCommits(ctx context.Context, branch string) ([]vcs.Merge, error)
	MergeBase(ctx context.Context, a, b string) (string, bool, error)
	CommitTime(ctx context.Context, rev string) (time.Time, error)
}

// Sample is the latency measured for a single merge commit.
type Sample struct {
	Commit      string        `json:"commit"`
	BranchPoint string        `json:"branch_point"`
	BranchedAt  time.Time     `json:"branched_at"`
	MergedAt    time.Time     `json:"merged_at"`
	Latency     time.Duration `json:"latency"`
}

// Summary holds descriptive statistics over a set of latencies. The zero
// value (Count == 0) means there was no data.
type Summary struct {
	Count int           `json:"count"`
	Mean  time.Duration `json:"mean"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	P90   time.Duration `json:"p90"`
}

// HasData reports whether the summary was computed from at least one sample.
func (s Summary) HasData() bool {
	return s.Count > 0
}

// Report is the full outcome of a latency analysis.
type Report struct {
	Branch string `json:"branch"`
	Trunk  string `json:"trunk"`

	// Merges is the number of merge commits found on Branch.
	Merges int `json:"merges"`

	// Skipped counts merges without a usable branch point.
	Skipped int `json:"skipped"`

	Samples []Sample `json:"samples"`
	Summary Summary  `json:"summary"`
}
