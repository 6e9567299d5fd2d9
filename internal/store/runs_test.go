package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecordRun(t *testing.T) {
	db := openTestDB(t)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	run, err := db.RecordRun(Run{Command: "statistics", Target: "/repo", Version: "v1.0.0", TakenAt: at}, []Metric{
		{Name: "mean_seconds", Value: 3600},
		{Name: "samples", Value: 4},
	})
	require.NoError(t, err)

	assert.NotZero(t, run.ID)
	assert.Len(t, run.RunID, 36)
	assert.Equal(t, time.UTC, run.TakenAt.Location())
	assert.True(t, run.TakenAt.Equal(at))

	metrics, err := db.GetMetrics(run.ID)
	require.NoError(t, err)
	assert.Equal(t, []Metric{{"mean_seconds", 3600}, {"samples", 4}}, metrics)
}

func TestListRuns(t *testing.T) {
	db := openTestDB(t)

	for _, cmd := range []string{"statistics", "ignore-stat", "statistics"} {
		_, err := db.RecordRun(Run{Command: cmd, Target: "/repo", Version: "dev"}, nil)
		require.NoError(t, err)
	}

	all, err := db.ListRuns("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "statistics", all[0].Command)
	assert.Greater(t, all[0].ID, all[1].ID)

	stats, err := db.ListRuns("statistics", 0)
	require.NoError(t, err)
	assert.Len(t, stats, 2)

	limited, err := db.ListRuns("", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPreviousRun(t *testing.T) {
	db := openTestDB(t)

	first, err := db.RecordRun(Run{Command: "statistics", Target: "/a"}, nil)
	require.NoError(t, err)
	_, err = db.RecordRun(Run{Command: "statistics", Target: "/b"}, nil)
	require.NoError(t, err)
	third, err := db.RecordRun(Run{Command: "statistics", Target: "/a"}, nil)
	require.NoError(t, err)

	prev, err := db.PreviousRun(*third)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, first.RunID, prev.RunID)

	none, err := db.PreviousRun(*first)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDiff(t *testing.T) {
	prev := []Metric{{"mean_seconds", 100}, {"samples", 3}}
	cur := []Metric{{"mean_seconds", 80}, {"samples", 3}, {"p90_seconds", 200}}

	assert.Equal(t, []MetricDelta{
		{Name: "mean_seconds", Previous: 100, Current: 80, Delta: -20},
		{Name: "samples", Previous: 3, Current: 3, Delta: 0},
	}, Diff(prev, cur))
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cuality.db")

	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.RecordRun(Run{Command: "ignore-stat", Target: "/src"}, []Metric{{"total_lines", 10}})
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening must not rerun the migration.
	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	runs, err := db.ListRuns("ignore-stat", 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
