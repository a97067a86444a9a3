package solver

import (
	"context"
	"math"
	"math/rand"

	"github.com/kilianp07/slotplan/core/logger"
)

// Cost weights of the annealing objective.
const (
	RoomConflictWeight   = 10
	PersonConflictWeight = 20
	UnscheduledWeight    = 5
)

// AnnealingSolver is a simulated annealing search over random single task
// moves with geometric cooling.
type AnnealingSolver struct {
	opts Options
	log  logger.Logger
}

// NewAnnealing returns the simulated annealing strategy.
func NewAnnealing(opts Options, log logger.Logger) *AnnealingSolver {
	return &AnnealingSolver{opts: opts, log: logger.OrNop(log)}
}

func (s *AnnealingSolver) Name() string { return SimulatedAnnealing }

// Cost scores a board: weighted room and person collisions plus unscheduled
// tasks.
func Cost(roomPairs, personPairs, unscheduled int) float64 {
	return float64(RoomConflictWeight*roomPairs + PersonConflictWeight*personPairs + UnscheduledWeight*unscheduled)
}

// Solve implements Solver.
func (s *AnnealingSolver) Solve(ctx context.Context, p Problem) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	opts := s.opts.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.TimeBudget)
	defer cancel()

	rng := rand.New(rand.NewSource(opts.Seed))
	b := newBoard(p)
	randomize(b, rng)

	var movable []int
	for t := range b.tasks {
		if len(b.doms[t]) > 0 {
			movable = append(movable, t)
		}
	}

	roomPairs, personPairs := b.conflicts()
	floor := Cost(0, 0, b.unplacedCount())
	cost := Cost(roomPairs, personPairs, b.unplacedCount())
	best, bestAt := cost, b.snapshot()

	var stats Stats
	temp := opts.InitialTemperature
	for stats.Iterations < opts.AnnealingIterations && temp >= opts.MinTemperature && cost > floor && len(movable) > 0 {
		if ctx.Err() != nil {
			stats.TimedOut = true
			break
		}
		stats.Iterations++

		t := movable[rng.Intn(len(movable))]
		old := b.at[t]
		rOld, pOld := b.hits(t, old.slot, old.room)
		slot := b.doms[t][rng.Intn(len(b.doms[t]))]
		room := 1 + rng.Intn(b.rooms)
		b.assign(t, slot, room)
		rNew, pNew := b.hits(t, slot, room)

		delta := float64(RoomConflictWeight*(rNew-rOld) + PersonConflictWeight*(pNew-pOld))
		if delta < 0 || rng.Float64() < math.Exp(-delta/temp) {
			cost += delta
		} else {
			b.assign(t, old.slot, old.room)
		}
		if cost < best {
			best, bestAt = cost, b.snapshot()
		}
		opts.report(stats.Iterations, cost, best)
		temp *= opts.CoolingRate
	}

	b.restore(bestAt)
	roomPairs, personPairs = b.conflicts()
	stats.FinalCost = best
	stats.FinalConflicts = roomPairs + personPairs
	stats.ConstraintChecks = b.checks
	if stats.TimedOut {
		s.log.Warnf("simulated_annealing: time budget exceeded after %d iterations", stats.Iterations)
	}
	s.log.Debugw("simulated_annealing done", map[string]any{"iterations": stats.Iterations, "cost": best, "temperature": temp})
	return finish(b, stats), nil
}
