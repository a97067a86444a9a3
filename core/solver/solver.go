// Package solver holds the interchangeable search strategies that place tasks
// into (slot, room) pairs. Every strategy shares the same occupancy board so
// feasibility and conflict counting stay identical across them.
package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/slotplan/core/domain"
	"github.com/kilianp07/slotplan/core/model"
	"github.com/kilianp07/slotplan/core/slots"
)

// Algorithm names.
const (
	Greedy             = "greedy"
	CSPBacktrack       = "csp_backtrack"
	MinConflict        = "min_conflict"
	SimulatedAnnealing = "simulated_annealing"
)

// Problem is the input of one solve.
type Problem struct {
	Grid    *slots.Grid
	Tasks   []model.Task
	Domains domain.Set
	Rooms   int
}

func (p Problem) validate() error {
	if p.Grid == nil {
		return fmt.Errorf("solver: nil grid")
	}
	if p.Rooms < 1 {
		return fmt.Errorf("solver: room count must be at least 1, got %d", p.Rooms)
	}
	return nil
}

// Stats are the counters a strategy reports. Fields a strategy does not use
// stay zero.
type Stats struct {
	Assignments      int     `json:"assignments,omitempty"`
	Backtracks       int     `json:"backtracks,omitempty"`
	ConstraintChecks int     `json:"constraintChecks,omitempty"`
	Iterations       int     `json:"iterations,omitempty"`
	FinalConflicts   int     `json:"finalConflicts,omitempty"`
	FinalCost        float64 `json:"finalCost,omitempty"`
	TimedOut         bool    `json:"timedOut,omitempty"`
}

// Result is the output of a strategy. Unscheduled holds exactly the tasks
// missing from Assignment, in task order.
type Result struct {
	Assignment  model.Assignment
	Unscheduled []model.TaskID
	Stats       Stats
	Conflicts   []model.Conflict
}

// Solver is implemented by every strategy. Solve never fails because the
// tasks cannot all be placed; errors are reserved for malformed problems.
type Solver interface {
	Name() string
	Solve(ctx context.Context, p Problem) (*Result, error)
}

// Options tune the strategies. Zero values fall back to DefaultOptions.
type Options struct {
	TimeBudget            time.Duration `json:"time_budget"`
	MaxBacktracks         int           `json:"max_backtracks"`
	MinConflictIterations int           `json:"min_conflict_iterations"`
	AnnealingIterations   int           `json:"annealing_iterations"`
	InitialTemperature    float64       `json:"initial_temperature"`
	CoolingRate           float64       `json:"cooling_rate"`
	MinTemperature        float64       `json:"min_temperature"`
	// Seed drives the local search strategies. Zero seeds from the clock.
	Seed int64 `json:"seed"`
	// OnIteration is called by local search after every iteration with the
	// current and best cost.
	OnIteration func(iteration int, current, best float64) `json:"-"`
}

// DefaultOptions returns the reference tuning.
func DefaultOptions() Options {
	return Options{
		TimeBudget:            30 * time.Second,
		MaxBacktracks:         100000,
		MinConflictIterations: 1000,
		AnnealingIterations:   20000,
		InitialTemperature:    100,
		CoolingRate:           0.995,
		MinTemperature:        0.01,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TimeBudget <= 0 {
		o.TimeBudget = d.TimeBudget
	}
	if o.MaxBacktracks <= 0 {
		o.MaxBacktracks = d.MaxBacktracks
	}
	if o.MinConflictIterations <= 0 {
		o.MinConflictIterations = d.MinConflictIterations
	}
	if o.AnnealingIterations <= 0 {
		o.AnnealingIterations = d.AnnealingIterations
	}
	if o.InitialTemperature <= 0 {
		o.InitialTemperature = d.InitialTemperature
	}
	if o.CoolingRate <= 0 || o.CoolingRate >= 1 {
		o.CoolingRate = d.CoolingRate
	}
	if o.MinTemperature <= 0 {
		o.MinTemperature = d.MinTemperature
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	return o
}

func (o Options) report(iter int, current, best float64) {
	if o.OnIteration != nil {
		o.OnIteration(iter, current, best)
	}
}

// finish builds the result from the board.
func finish(b *board, stats Stats) *Result {
	return &Result{
		Assignment:  b.assignment(),
		Unscheduled: b.unscheduled(),
		Stats:       stats,
		Conflicts:   b.detect(),
	}
}
