package solver

import (
	"context"
	"sort"

	"github.com/kilianp07/slotplan/core/logger"
)

// mrvOrder returns task indices by ascending domain size, then ascending
// priority rank (most important group first), then task order.
func mrvOrder(b *board) []int {
	order := make([]int, len(b.tasks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, c := order[i], order[j]
		if len(b.doms[a]) != len(b.doms[c]) {
			return len(b.doms[a]) < len(b.doms[c])
		}
		return b.tasks[a].Priority < b.tasks[c].Priority
	})
	return order
}

// GreedySolver places tasks one by one in MRV order on the first free
// (slot, room) of their domain. It never backtracks.
type GreedySolver struct {
	log logger.Logger
}

// NewGreedy returns the greedy strategy.
func NewGreedy(log logger.Logger) *GreedySolver {
	return &GreedySolver{log: logger.OrNop(log)}
}

func (g *GreedySolver) Name() string { return Greedy }

// Solve implements Solver.
func (g *GreedySolver) Solve(ctx context.Context, p Problem) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	b := newBoard(p)
	var stats Stats
	for _, t := range mrvOrder(b) {
		if ctx.Err() != nil {
			stats.TimedOut = true
			g.log.Warnf("greedy: stopped early: %v", ctx.Err())
			break
		}
		if place(b, t) {
			stats.Assignments++
		}
	}
	stats.ConstraintChecks = b.checks
	res := finish(b, stats)
	g.log.Debugw("greedy done", map[string]any{"assigned": len(res.Assignment), "unscheduled": len(res.Unscheduled)})
	return res, nil
}

// place puts t on its first free option.
func place(b *board, t int) bool {
	for _, s := range b.doms[t] {
		for r := 1; r <= b.rooms; r++ {
			if b.free(t, s, r) {
				b.assign(t, s, r)
				return true
			}
		}
	}
	return false
}
