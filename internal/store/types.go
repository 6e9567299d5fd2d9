// Package store provides SQLite persistence for cuality run history.
package store

import "time"

// Run is one recorded invocation of a reporting command.
type Run struct {
	ID      int64     `json:"-"`
	RunID   string    `json:"run_id"`
	TakenAt time.Time `json:"taken_at"`
	Command string    `json:"command"`
	Target  string    `json:"target"`
	Version string    `json:"version"`
}

// Metric is a named value recorded for a run.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// MetricDelta represents the change in a single metric between two runs.
type MetricDelta struct {
	Name     string  `json:"name"`
	Previous float64 `json:"previous"`
	Current  float64 `json:"current"`
	Delta    float64 `json:"delta"`
}
