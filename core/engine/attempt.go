package engine

import (
	"context"
	"time"

	"github.com/kilianp07/slotplan/core/conflict"
	"github.com/kilianp07/slotplan/core/events"
	"github.com/kilianp07/slotplan/core/model"
	"github.com/kilianp07/slotplan/core/solver"
)

// autoRooms are the room counts tried, in order, by the auto mode.
var autoRooms = []int{1, 2}

// attempt is the cleaned outcome of one strategy run for a room count.
type attempt struct {
	rooms       int
	assignment  model.Assignment
	unscheduled []model.TaskID
	stats       solver.Stats
	conflicts   []model.Conflict
	proposals   []conflict.Proposal
	evicted     map[model.TaskID]bool
}

func (e *Engine) attempt(ctx context.Context, algorithm string, opts solver.Options, p *prepared, rooms int) (*attempt, error) {
	s, err := solver.New(algorithm, opts, e.log)
	if err != nil {
		return nil, err
	}
	prob := solver.Problem{Grid: p.grid, Tasks: p.tasks, Domains: p.doms, Rooms: rooms}
	r, err := s.Solve(ctx, prob)
	if err != nil {
		return nil, err
	}

	out := &attempt{rooms: rooms, assignment: r.Assignment, stats: r.Stats, conflicts: r.Conflicts}
	if len(r.Conflicts) > 0 {
		e.log.Warnf("%s left %d conflict(s) with %d room(s)", algorithm, len(r.Conflicts), rooms)
		out.proposals, err = e.resolver.Resolve(prob, r.Assignment, r.Conflicts)
		if err != nil {
			return nil, err
		}
		cleaned, evicted := solver.Evict(prob, r.Assignment)
		out.assignment = cleaned
		out.evicted = make(map[model.TaskID]bool, len(evicted))
		for _, id := range evicted {
			out.evicted[id] = true
		}
	}
	for _, t := range p.tasks {
		if _, ok := out.assignment[t.ID]; !ok {
			out.unscheduled = append(out.unscheduled, t.ID)
		}
	}
	return out, nil
}

// auto tries one room and falls back to two when anything is left
// unscheduled. The attempt with fewer unscheduled tasks wins, one room on a
// tie. Both attempts share one time budget; the retry only gets what the
// first attempt left.
func (e *Engine) auto(ctx context.Context, runID, algorithm string, opts solver.Options, p *prepared) (*attempt, error) {
	if opts.TimeBudget <= 0 {
		opts.TimeBudget = solver.DefaultOptions().TimeBudget
	}
	deadline := e.now().Add(opts.TimeBudget)
	var best *attempt
	for i, rooms := range autoRooms {
		action := "attempt"
		if i > 0 {
			action = "retry"
			left := deadline.Sub(e.now())
			if left <= 0 {
				e.log.Warnf("auto room mode: time budget spent, keeping %d room(s)", best.rooms)
				break
			}
			opts.TimeBudget = left
		}
		a, err := e.attempt(ctx, algorithm, opts, p, rooms)
		if err != nil {
			return nil, err
		}
		e.publish(events.StrategyEvent{RunID: runID, Algorithm: algorithm, Action: action, Rooms: rooms, Unscheduled: len(a.unscheduled), Budget: opts.TimeBudget})
		e.log.Debugw("auto room attempt", map[string]any{"rooms": rooms, "unscheduled": len(a.unscheduled), "budget": opts.TimeBudget.String()})
		if best == nil || len(a.unscheduled) < len(best.unscheduled) {
			best = a
		}
		if len(best.unscheduled) == 0 || ctx.Err() != nil {
			break
		}
	}
	e.publish(events.StrategyEvent{RunID: runID, Algorithm: algorithm, Action: "selected", Rooms: best.rooms, Unscheduled: len(best.unscheduled)})
	e.log.Infof("auto room mode selected %d room(s)", best.rooms)
	return best, nil
}

func (a *attempt) conflictEvents(runID, algorithm string) []events.ConflictEvent {
	if len(a.conflicts) == 0 {
		return nil
	}
	reasons := make(map[model.Conflict]string, len(a.proposals))
	for _, p := range a.proposals {
		reasons[p.Conflict] = string(p.Strategy) + ": " + p.Reason
	}
	out := make([]events.ConflictEvent, 0, len(a.conflicts))
	for _, c := range a.conflicts {
		ev := events.ConflictEvent{RunID: runID, Algorithm: algorithm, Conflict: c, Proposal: reasons[c]}
		switch {
		case a.evicted[c.TaskID]:
			ev.Evicted = c.TaskID
		case a.evicted[c.ConflictsWith]:
			ev.Evicted = c.ConflictsWith
		}
		out = append(out, ev)
	}
	return out
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }
