package metrics

import (
	"time"

	"github.com/kilianp07/slotplan/core/model"
	"github.com/kilianp07/slotplan/core/solver"
)

// SolveRecord summarises one engine run.
type SolveRecord struct {
	RunID       string
	Algorithm   string
	Rooms       int
	Tasks       int
	Scheduled   int
	Unscheduled int
	Invalid     int
	Conflicts   int
	Stats       solver.Stats
	Duration    time.Duration
	ErrorCode   string
	Time        time.Time
}

// Failed reports whether the run stopped before any solver ran.
func (r SolveRecord) Failed() bool { return r.ErrorCode != "" }

// MetricsSink records engine runs for observability purposes.
type MetricsSink interface {
	RecordSolve(rec SolveRecord) error
}

// StrategyRecord is one attempt of the auto room mode.
type StrategyRecord struct {
	RunID       string
	Algorithm   string
	Action      string
	Rooms       int
	Unscheduled int
	Time        time.Time
}

// StrategyRecorder is implemented by sinks tracking auto room attempts.
type StrategyRecorder interface {
	RecordStrategy(rec StrategyRecord) error
}

// ConflictRecord is a double booking found after search.
type ConflictRecord struct {
	RunID     string
	Algorithm string
	Conflict  model.Conflict
	Evicted   model.TaskID
	Time      time.Time
}

// ConflictRecorder is implemented by sinks tracking conflicts.
type ConflictRecorder interface {
	RecordConflict(rec ConflictRecord) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordSolve(SolveRecord) error       { return nil }
func (NopSink) RecordStrategy(StrategyRecord) error { return nil }
func (NopSink) RecordConflict(ConflictRecord) error { return nil }
