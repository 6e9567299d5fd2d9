package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/cuality/internal/faults"
	"github.com/blackwell-systems/cuality/internal/vcs"
)

var t0 = time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)

// fakeHistory serves canned git answers.
type fakeHistory struct {
	merges    []vcs.Merge
	mergesErr error
	bases     map[string]string // first parent -> merge-base
	baseErr   error
	times     map[string]time.Time
	baseCalls [][2]string
}

func (f *fakeHistory) MergeCommits(_ context.Context, _ string) ([]vcs.Merge, error) {
	return f.merges, f.mergesErr
}

func (f *fakeHistory) MergeBase(_ context.Context, a, b string) (string, bool, error) {
	f.baseCalls = append(f.baseCalls, [2]string{a, b})
	if f.baseErr != nil {
		return "", false, f.baseErr
	}
	base, ok := f.bases[a]
	return base, ok, nil
}

func (f *fakeHistory) CommitTime(_ context.Context, rev string) (time.Time, error) {
	ts, ok := f.times[rev]
	if !ok {
		return time.Time{}, errors.New("unknown revision " + rev)
	}
	return ts, nil
}

func TestAnalyze(t *testing.T) {
	h := &fakeHistory{
		merges: []vcs.Merge{
			{Commit: "m1", Parents: []string{"p1", "f1"}, CommittedAt: t0.Add(48 * time.Hour)},
			{Commit: "m2", Parents: []string{"p2", "f2"}, CommittedAt: t0.Add(10 * time.Hour)},
			{Commit: "m3", Parents: []string{"orphan", "f3"}, CommittedAt: t0},
		},
		bases: map[string]string{"p1": "b1", "p2": "b2"},
		times: map[string]time.Time{
			"b1": t0,
			"b2": t0.Add(4 * time.Hour),
		},
	}

	report, err := NewAnalyzer(h, nil).Analyze(context.Background(), "main", "main")
	require.NoError(t, err)

	assert.Equal(t, 3, report.Merges)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Samples, 2)

	assert.Equal(t, "b1", report.Samples[0].BranchPoint)
	assert.Equal(t, 48*time.Hour, report.Samples[0].Latency)
	assert.Equal(t, 6*time.Hour, report.Samples[1].Latency)

	assert.Equal(t, [2]string{"p1", "main"}, h.baseCalls[0], "merge-base uses first parent and trunk")

	s := report.Summary
	require.True(t, s.HasData())
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, 27*time.Hour, s.Mean)
	assert.Equal(t, 6*time.Hour, s.Min)
	assert.Equal(t, 48*time.Hour, s.Max)
}

func TestAnalyze_NegativeLatencyIsKept(t *testing.T) {
	h := &fakeHistory{
		merges: []vcs.Merge{
			{Commit: "m1", Parents: []string{"p1", "f1"}, CommittedAt: t0},
		},
		bases: map[string]string{"p1": "b1"},
		times: map[string]time.Time{"b1": t0.Add(time.Hour)},
	}

	report, err := NewAnalyzer(h, nil).Analyze(context.Background(), "main", "main")
	require.NoError(t, err)
	require.Len(t, report.Samples, 1)
	assert.Equal(t, -time.Hour, report.Samples[0].Latency)
	assert.Equal(t, -time.Hour, report.Summary.Min)
}

func TestAnalyze_NoMerges(t *testing.T) {
	report, err := NewAnalyzer(&fakeHistory{}, nil).Analyze(context.Background(), "main", "main")
	require.NoError(t, err)
	assert.Zero(t, report.Merges)
	assert.False(t, report.Summary.HasData())
}

func TestAnalyze_SingleParentIsSkipped(t *testing.T) {
	h := &fakeHistory{
		merges: []vcs.Merge{{Commit: "m1", Parents: []string{"p1"}, CommittedAt: t0}},
	}

	report, err := NewAnalyzer(h, nil).Analyze(context.Background(), "main", "main")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, h.baseCalls)
}

func TestAnalyze_ToolErrorAborts(t *testing.T) {
	toolErr := &faults.ToolError{Command: []string{"git", "merge-base"}, ExitCode: 128, Stderr: "fatal: bad object"}
	h := &fakeHistory{
		merges:  []vcs.Merge{{Commit: "m1", Parents: []string{"p1", "f1"}, CommittedAt: t0}},
		baseErr: toolErr,
	}

	report, err := NewAnalyzer(h, nil).Analyze(context.Background(), "main", "main")
	require.Error(t, err)
	assert.Empty(t, report.Samples, "no partial report")

	var te *faults.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 128, te.ExitCode)
}

func TestAnalyze_ListingErrorAborts(t *testing.T) {
	h := &fakeHistory{mergesErr: &faults.ToolError{Command: []string{"git", "log"}, ExitCode: 128}}

	_, err := NewAnalyzer(h, nil).Analyze(context.Background(), "feature", "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listing merge commits on feature")
}
