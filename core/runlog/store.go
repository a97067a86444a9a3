// Package runlog persists one record per engine run so past runs can be
// listed and compared.
package runlog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/kilianp07/slotplan/core/engine"
	"github.com/kilianp07/slotplan/core/solver"
)

// Record captures the outcome of one run.
type Record struct {
	RunID     string        `json:"run_id"`
	Timestamp time.Time     `json:"timestamp"`
	Algorithm string        `json:"algorithm"`
	Rooms     int           `json:"rooms"`
	Window    engine.Window `json:"planning_window"`
	// InputHash fingerprints the input so identical runs can be grouped.
	InputHash   string       `json:"input_hash"`
	Tasks       int          `json:"tasks"`
	Scheduled   int          `json:"scheduled"`
	Unscheduled int          `json:"unscheduled"`
	Invalid     int          `json:"invalid"`
	Conflicts   int          `json:"conflicts"`
	Stats       solver.Stats `json:"stats"`
	DurationMS  int64        `json:"duration_ms"`
	ErrorCode   string       `json:"error_code,omitempty"`
}

// Query defines filters for retrieving records. Zero fields match all.
type Query struct {
	Start     time.Time
	End       time.Time
	Algorithm string
	RunID     string
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Algorithm != "" && r.Algorithm != q.Algorithm {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Fingerprint returns a stable hash of in, ignoring its run id.
func Fingerprint(in engine.Input) string {
	in.RunID = ""
	b, err := json.Marshal(in)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// FromResult builds the record of a successful run.
func FromResult(in engine.Input, res *engine.Result, started time.Time, d time.Duration) Record {
	return Record{
		RunID:       res.RunID,
		Timestamp:   started,
		Algorithm:   res.Algorithm,
		Rooms:       res.RoomCount,
		Window:      res.Window,
		InputHash:   Fingerprint(in),
		Tasks:       res.Summary.TotalTasks,
		Scheduled:   res.Summary.Scheduled,
		Unscheduled: res.Summary.Unscheduled,
		Invalid:     res.Summary.InvalidTasks,
		Conflicts:   len(res.Conflicts),
		Stats:       res.Stats,
		DurationMS:  d.Milliseconds(),
	}
}

// FromError builds the record of a failed run.
func FromError(in engine.Input, runID, algorithm string, err error, started time.Time, d time.Duration) Record {
	return Record{
		RunID:      runID,
		Timestamp:  started,
		Algorithm:  algorithm,
		Window:     in.PlanningWindow,
		InputHash:  Fingerprint(in),
		DurationMS: d.Milliseconds(),
		ErrorCode:  engine.Code(err),
	}
}
