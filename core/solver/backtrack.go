package solver

import (
	"context"

	"github.com/kilianp07/slotplan/core/logger"
)

// BacktrackSolver runs a depth first search over tasks in MRV order with
// forward checking. A task may be left unassigned, so one unplaceable task
// does not sink the whole search. When no full placement is found the
// assignment with the most placed tasks is kept and finished greedily.
type BacktrackSolver struct {
	opts Options
	log  logger.Logger
}

// NewBacktrack returns the CSP backtracking strategy.
func NewBacktrack(opts Options, log logger.Logger) *BacktrackSolver {
	return &BacktrackSolver{opts: opts, log: logger.OrNop(log)}
}

func (s *BacktrackSolver) Name() string { return CSPBacktrack }

type search struct {
	ctx   context.Context
	b     *board
	order []int
	opts  Options
	stats Stats

	best      []pos
	bestCount int
	aborted   bool
}

// Solve implements Solver.
func (s *BacktrackSolver) Solve(ctx context.Context, p Problem) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	opts := s.opts.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, opts.TimeBudget)
	defer cancel()

	b := newBoard(p)
	var order []int
	for _, t := range mrvOrder(b) {
		// tasks without any start can only end up unscheduled
		if len(b.doms[t]) > 0 {
			order = append(order, t)
		}
	}
	sr := &search{ctx: ctx, b: b, order: order, opts: opts, best: b.snapshot()}
	complete := sr.solve(0, 0)

	if !complete {
		b.restore(sr.best)
		for _, t := range order {
			if !b.placed(t) && place(b, t) {
				sr.stats.Assignments++
			}
		}
	}
	sr.stats.TimedOut = sr.aborted
	sr.stats.ConstraintChecks = b.checks
	if sr.aborted {
		s.log.Warnf("csp_backtrack: search stopped after %d backtracks, keeping best partial of %d tasks", sr.stats.Backtracks, sr.bestCount)
	}
	res := finish(b, sr.stats)
	s.log.Debugw("csp_backtrack done", map[string]any{
		"assigned":    len(res.Assignment),
		"unscheduled": len(res.Unscheduled),
		"backtracks":  sr.stats.Backtracks,
		"complete":    complete,
	})
	return res, nil
}

func (sr *search) exhausted() bool {
	if sr.aborted {
		return true
	}
	if sr.stats.Backtracks >= sr.opts.MaxBacktracks || sr.ctx.Err() != nil {
		sr.aborted = true
	}
	return sr.aborted
}

// solve decides order[k:] with placed tasks already on the board. Each task
// is either placed or left unassigned. Branches that cannot place more tasks
// than the best assignment seen so far are pruned. It reports true once
// every task is placed.
func (sr *search) solve(k, placed int) bool {
	if k == len(sr.order) {
		return placed == len(sr.order)
	}
	if sr.exhausted() {
		return false
	}
	b := sr.b
	t := sr.order[k]
	rest := len(sr.order) - k - 1
	for _, slot := range b.doms[t] {
		for r := 1; r <= b.rooms; r++ {
			if !b.free(t, slot, r) {
				continue
			}
			b.assign(t, slot, r)
			sr.stats.Assignments++
			if placed+1 == len(sr.order) {
				return true
			}
			sr.keep(placed + 1)
			if placed+1+rest-sr.wiped(k) > sr.bestCount {
				if sr.solve(k+1, placed+1) {
					return true
				}
			}
			b.unassign(t)
			sr.stats.Backtracks++
			if sr.exhausted() {
				return false
			}
		}
	}
	// leave t unassigned
	if placed+rest > sr.bestCount {
		return sr.solve(k+1, placed)
	}
	return false
}

// keep records the board when it holds more placed tasks than the best so
// far.
func (sr *search) keep(placed int) {
	if placed > sr.bestCount {
		sr.bestCount = placed
		sr.best = sr.b.snapshot()
	}
}

// wiped counts the tasks after position k left without any free option.
func (sr *search) wiped(k int) int {
	n := 0
	for _, u := range sr.order[k+1:] {
		if !sr.b.fits(u) {
			n++
		}
	}
	return n
}
