package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = "id, run_id, taken_at, command, target, version"

// RecordRun inserts a run together with its metrics in a single transaction.
// A zero TakenAt is set to the current time and an empty RunID gets a fresh
// UUID. The stored run is returned.
func (db *DB) RecordRun(run Run, metrics []Metric) (*Run, error) {
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.TakenAt.IsZero() {
		run.TakenAt = time.Now()
	}
	run.TakenAt = run.TakenAt.UTC()

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(
		"INSERT INTO runs (run_id, taken_at, command, target, version) VALUES (?, ?, ?, ?, ?)",
		run.RunID, run.TakenAt.Format(time.RFC3339Nano), run.Command, run.Target, run.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	if run.ID, err = result.LastInsertId(); err != nil {
		return nil, err
	}

	for _, m := range metrics {
		if _, err := tx.Exec(
			"INSERT INTO run_metrics (run_id, metric_name, metric_value) VALUES (?, ?, ?)",
			run.ID, m.Name, m.Value,
		); err != nil {
			return nil, fmt.Errorf("inserting metric %s: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs first. An empty command lists every
// command; a non-positive limit lists everything.
func (db *DB) ListRuns(command string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(
		"SELECT "+runColumns+" FROM runs WHERE ? = '' OR command = ? ORDER BY id DESC LIMIT ?",
		command, command, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// PreviousRun returns the run recorded just before run for the same command
// and target, or nil if there is none.
func (db *DB) PreviousRun(run Run) (*Run, error) {
	row := db.conn.QueryRow(
		"SELECT "+runColumns+" FROM runs WHERE command = ? AND target = ? AND id < ? ORDER BY id DESC LIMIT 1",
		run.Command, run.Target, run.ID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// GetMetrics returns the metrics of a run in insertion order.
func (db *DB) GetMetrics(runID int64) ([]Metric, error) {
	rows, err := db.conn.Query(
		"SELECT metric_name, metric_value FROM run_metrics WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var metrics []Metric
	for rows.Next() {
		var m Metric
		if err := rows.Scan(&m.Name, &m.Value); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// Diff pairs each current metric with the previous value of the same name.
// Metrics absent from previous are skipped.
func Diff(previous, current []Metric) []MetricDelta {
	prev := make(map[string]float64, len(previous))
	for _, m := range previous {
		prev[m.Name] = m.Value
	}

	var deltas []MetricDelta
	for _, m := range current {
		p, ok := prev[m.Name]
		if !ok {
			continue
		}
		deltas = append(deltas, MetricDelta{
			Name:     m.Name,
			Previous: p,
			Current:  m.Value,
			Delta:    m.Value - p,
		})
	}
	return deltas
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var takenAt string
	if err := s.Scan(&r.ID, &r.RunID, &takenAt, &r.Command, &r.Target, &r.Version); err != nil {
		return nil, err
	}
	r.TakenAt, _ = time.Parse(time.RFC3339Nano, takenAt)
	return &r, nil
}
