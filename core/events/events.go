package events

import (
	"time"

	"github.com/kilianp07/slotplan/core/model"
	"github.com/kilianp07/slotplan/core/solver"
)

// Event is anything published on the engine bus.
type Event interface {
	EventName() string
}

// SolveEvent is published once per engine run, failed runs included.
type SolveEvent struct {
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
	// ErrorCode is empty for successful runs.
	ErrorCode string
	Time      time.Time
}

func (SolveEvent) EventName() string { return "solve" }

// StrategyEvent is emitted by the auto room mode. Action is one of
// "attempt", "retry" or "selected". Budget is the search time granted to an
// attempt or retry.
type StrategyEvent struct {
	RunID       string
	Algorithm   string
	Action      string
	Rooms       int
	Unscheduled int
	Budget      time.Duration
}

func (StrategyEvent) EventName() string { return "strategy" }

// ConflictEvent reports a double booking left by a local search strategy.
// Evicted is the task removed from the final assignment.
type ConflictEvent struct {
	RunID     string
	Algorithm string
	Conflict  model.Conflict
	Evicted   model.TaskID
	Proposal  string
}

func (ConflictEvent) EventName() string { return "conflict" }
