package solver

import (
	"context"
	"math/rand"

	"github.com/kilianp07/slotplan/core/logger"
)

// MinConflictSolver is a min-conflicts local search. It starts from a random
// placement and keeps moving a randomly chosen conflicted task to the option
// with the fewest collisions. The best placement seen is returned.
type MinConflictSolver struct {
	opts Options
	log  logger.Logger
}

// NewMinConflict returns the min-conflict strategy.
func NewMinConflict(opts Options, log logger.Logger) *MinConflictSolver {
	return &MinConflictSolver{opts: opts, log: logger.OrNop(log)}
}

func (s *MinConflictSolver) Name() string { return MinConflict }

// randomize places every task with a non empty domain on a random option,
// regardless of feasibility.
func randomize(b *board, rng *rand.Rand) {
	for t := range b.tasks {
		if len(b.doms[t]) == 0 {
			continue
		}
		b.assign(t, b.doms[t][rng.Intn(len(b.doms[t]))], 1+rng.Intn(b.rooms))
	}
}

// Solve implements Solver.
func (s *MinConflictSolver) Solve(ctx context.Context, p Problem) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	opts := s.opts.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.TimeBudget)
	defer cancel()

	rng := rand.New(rand.NewSource(opts.Seed))
	b := newBoard(p)
	randomize(b, rng)

	var stats Stats
	roomPairs, personPairs := b.conflicts()
	current := roomPairs + personPairs
	best, bestAt := current, b.snapshot()

	for stats.Iterations < opts.MinConflictIterations && current > 0 {
		if ctx.Err() != nil {
			stats.TimedOut = true
			break
		}
		stats.Iterations++

		conflicted := b.conflicted()
		t := conflicted[rng.Intn(len(conflicted))]
		slot, room := s.bestMove(b, t)
		b.assign(t, slot, room)

		roomPairs, personPairs = b.conflicts()
		current = roomPairs + personPairs
		if current < best {
			best, bestAt = current, b.snapshot()
		}
		opts.report(stats.Iterations, float64(current), float64(best))
	}

	b.restore(bestAt)
	stats.FinalConflicts = best
	stats.ConstraintChecks = b.checks
	if stats.TimedOut {
		s.log.Warnf("min_conflict: time budget exceeded after %d iterations", stats.Iterations)
	}
	s.log.Debugw("min_conflict done", map[string]any{"iterations": stats.Iterations, "conflicts": best})
	return finish(b, stats), nil
}

// bestMove returns the option of t with the fewest collisions, first found on
// ties.
func (s *MinConflictSolver) bestMove(b *board, t int) (int, int) {
	bestSlot, bestRoom, bestHits := b.at[t].slot, b.at[t].room, -1
	for _, slot := range b.doms[t] {
		for r := 1; r <= b.rooms; r++ {
			rh, ph := b.hits(t, slot, r)
			if bestHits < 0 || rh+ph < bestHits {
				bestSlot, bestRoom, bestHits = slot, r, rh+ph
			}
		}
	}
	return bestSlot, bestRoom
}
