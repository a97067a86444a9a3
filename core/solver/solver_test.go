package solver

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/slotplan/core/domain"
	"github.com/kilianp07/slotplan/core/logger"
	"github.com/kilianp07/slotplan/core/model"
	"github.com/kilianp07/slotplan/core/slots"
	"github.com/kilianp07/slotplan/core/tasks"
)

var monday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func oneWeek() *slots.Grid {
	return slots.Build(monday, monday.AddDate(0, 0, 6), slots.DefaultHours)
}

type taskDef struct {
	person   string
	week     int
	priority int
	dom      []int
}

// handmade builds a problem of 15 minute tasks with explicit domains.
func handmade(rooms int, defs ...taskDef) Problem {
	p := Problem{Grid: oneWeek(), Domains: domain.Set{}, Rooms: rooms}
	for _, s := range defs {
		t := model.Task{
			ID:         model.TaskID{PersonID: s.person, GroupID: "g", Week: model.WeekTag{Year: 2025, Week: s.week}},
			Duration:   15,
			Priority:   s.priority,
			PeriodWeek: 1,
		}
		p.Tasks = append(p.Tasks, t)
		p.Domains[t.ID] = s.dom
	}
	return p
}

// crowded squeezes 41 slots of work plus a monthly group into one day and
// one room.
func crowded(t *testing.T) Problem {
	t.Helper()
	g := oneWeek()
	groups := model.RankGroups([]model.Group{
		{ID: "a", Count: 6, Duration: 60, Frequency: model.FrequencyWeekly},
		{ID: "b", Count: 4, Duration: 30, Frequency: model.FrequencyWeekly},
		{ID: "c", Count: 3, Duration: 45, Frequency: model.FrequencyMonthly},
	}, []string{"b", "a", "c"})
	ts, err := tasks.Generate(groups, g.Weeks())
	require.NoError(t, err)
	var cs []model.GroupConstraint
	for _, id := range []string{"a", "b", "c"} {
		cs = append(cs, model.GroupConstraint{Group: id, Type: model.OnlyDay, Value: model.On(time.Monday)})
	}
	doms, _, err := (&domain.Calculator{Grid: g, Constraints: cs}).Compute(context.Background(), ts)
	require.NoError(t, err)
	return Problem{Grid: g, Tasks: ts, Domains: doms, Rooms: 1}
}

func allSolvers(seed int64) []Solver {
	opts := Options{Seed: seed, TimeBudget: 5 * time.Second, MinConflictIterations: 300, AnnealingIterations: 3000}
	return []Solver{
		NewGreedy(nil),
		NewBacktrack(opts, nil),
		NewMinConflict(opts, nil),
		NewAnnealing(opts, nil),
	}
}

func assertPartition(t *testing.T, p Problem, res *Result) {
	t.Helper()
	seen := map[model.TaskID]bool{}
	for id := range res.Assignment {
		seen[id] = true
	}
	for _, id := range res.Unscheduled {
		if seen[id] {
			t.Fatalf("%s is both assigned and unscheduled", id)
		}
		seen[id] = true
	}
	require.Len(t, seen, len(p.Tasks))
	for _, task := range p.Tasks {
		if !seen[task.ID] {
			t.Fatalf("task %s missing from result", task.ID)
		}
	}
}

func TestGreedyFirstSlot(t *testing.T) {
	g := oneWeek()
	groups := model.RankGroups([]model.Group{{ID: "g", Count: 1, Duration: 15, Frequency: model.FrequencyWeekly}}, nil)
	ts, err := tasks.Generate(groups, g.Weeks())
	require.NoError(t, err)
	doms, _, err := (&domain.Calculator{Grid: g}).Compute(context.Background(), ts)
	require.NoError(t, err)

	res, err := NewGreedy(nil).Solve(context.Background(), Problem{Grid: g, Tasks: ts, Domains: doms, Rooms: 1})
	require.NoError(t, err)
	require.Len(t, res.Assignment, 1)
	pl := res.Assignment[ts[0].ID]
	assert.Equal(t, "2025-01-06 09:00", pl.Slot.Key())
	assert.Equal(t, 1, pl.Room)
	assert.Empty(t, res.Unscheduled)
	assert.Equal(t, 1, res.Stats.Assignments)
}

func TestSamePersonOverlapLeavesOneUnscheduled(t *testing.T) {
	for _, s := range []Solver{NewGreedy(nil), NewBacktrack(Options{}, nil)} {
		p := handmade(2,
			taskDef{person: "p-1", week: 2, dom: []int{4}},
			taskDef{person: "p-1", week: 3, dom: []int{4}},
		)
		res, err := s.Solve(context.Background(), p)
		require.NoError(t, err)
		assert.Len(t, res.Assignment, 1, s.Name())
		assert.Len(t, res.Unscheduled, 1, s.Name())
		assert.Empty(t, res.Conflicts, s.Name())
	}
}

func TestSingleRoomSingleSlot(t *testing.T) {
	for _, s := range []Solver{NewGreedy(nil), NewBacktrack(Options{}, nil)} {
		p := handmade(1,
			taskDef{person: "p-1", week: 2, dom: []int{7}},
			taskDef{person: "q-1", week: 2, dom: []int{7}},
		)
		res, err := s.Solve(context.Background(), p)
		require.NoError(t, err)
		assert.Len(t, res.Assignment, 1, s.Name())
		assert.Equal(t, []model.TaskID{p.Tasks[1].ID}, res.Unscheduled, s.Name())
		assert.Empty(t, res.Conflicts, s.Name())
	}
}

func TestBacktrackingBeatsGreedy(t *testing.T) {
	p := handmade(1,
		taskDef{person: "a-1", week: 2, dom: []int{0, 1}},
		taskDef{person: "b-1", week: 2, dom: []int{1, 2}},
		taskDef{person: "c-1", week: 2, dom: []int{0, 1}},
	)
	greedy, err := NewGreedy(nil).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, greedy.Unscheduled, 1)

	res, err := NewBacktrack(Options{}, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Empty(t, res.Unscheduled)
	assert.False(t, res.Stats.TimedOut)
	assert.Positive(t, res.Stats.Backtracks)
	assert.Empty(t, Detect(p, res.Assignment))
}

func TestBacktrackingCapKeepsProgress(t *testing.T) {
	p := handmade(1,
		taskDef{person: "a-1", week: 2, dom: []int{0}},
		taskDef{person: "b-1", week: 2, dom: []int{0}},
		taskDef{person: "c-1", week: 2, dom: []int{3, 4}},
	)
	res, err := NewBacktrack(Options{MaxBacktracks: 1}, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, res.Stats.TimedOut)
	assert.Len(t, res.Assignment, 2)
	assertPartition(t, p, res)
	assert.Empty(t, Detect(p, res.Assignment))
}

func TestBacktrackingSkipsUnplaceableTask(t *testing.T) {
	p := handmade(1,
		taskDef{person: "a-1", week: 2, dom: []int{0, 1}},
		taskDef{person: "b-1", week: 2, dom: []int{1, 2}},
		taskDef{person: "c-1", week: 2, dom: []int{0, 1}},
		taskDef{person: "x-1", week: 2, dom: []int{9}},
		taskDef{person: "y-1", week: 2, dom: []int{9}},
	)
	greedy, err := NewGreedy(nil).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, greedy.Unscheduled, 2)

	res, err := NewBacktrack(Options{}, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, res.Stats.TimedOut)
	require.Len(t, res.Unscheduled, 1)
	assert.Contains(t, []model.TaskID{p.Tasks[3].ID, p.Tasks[4].ID}, res.Unscheduled[0])
	for _, tk := range p.Tasks[:3] {
		assert.Contains(t, res.Assignment, tk.ID)
	}
	assertPartition(t, p, res)
	assert.Empty(t, Detect(p, res.Assignment))
}

func TestEmptyDomainsAreUnscheduled(t *testing.T) {
	for _, s := range allSolvers(7) {
		p := handmade(1,
			taskDef{person: "a-1", week: 2, dom: nil},
			taskDef{person: "b-1", week: 2, dom: []int{0, 1, 2}},
		)
		res, err := s.Solve(context.Background(), p)
		require.NoError(t, err, s.Name())
		assert.Contains(t, res.Unscheduled, p.Tasks[0].ID, s.Name())
		assert.Contains(t, res.Assignment, p.Tasks[1].ID, s.Name())
	}
}

func TestInvariantsOnCrowdedDay(t *testing.T) {
	for _, s := range allSolvers(42) {
		t.Run(s.Name(), func(t *testing.T) {
			p := crowded(t)
			res, err := s.Solve(context.Background(), p)
			require.NoError(t, err)
			assertPartition(t, p, res)
			assert.Equal(t, Detect(p, res.Assignment), res.Conflicts)

			switch s.Name() {
			case Greedy, CSPBacktrack:
				assert.Empty(t, res.Conflicts)
				assert.NotEmpty(t, res.Unscheduled, "only 32 slots for 41 slots of work")
			}

			clean, evicted := Evict(p, res.Assignment)
			assert.Empty(t, Detect(p, clean))
			assert.Equal(t, len(res.Assignment), len(clean)+len(evicted))
		})
	}
}

func TestGreedyDeterministic(t *testing.T) {
	p := crowded(t)
	a, err := NewGreedy(nil).Solve(context.Background(), p)
	require.NoError(t, err)
	b, err := NewGreedy(nil).Solve(context.Background(), crowded(t))
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))
}

func TestLocalSearchBestNeverRegresses(t *testing.T) {
	for _, name := range []string{MinConflict, SimulatedAnnealing} {
		t.Run(name, func(t *testing.T) {
			prev := -1.0
			calls := 0
			opts := Options{Seed: 3, MinConflictIterations: 200, AnnealingIterations: 2000}
			opts.OnIteration = func(_ int, current, best float64) {
				calls++
				if best > current {
					t.Fatalf("best %.1f above current %.1f", best, current)
				}
				if prev >= 0 && best > prev {
					t.Fatalf("best cost regressed from %.1f to %.1f", prev, best)
				}
				prev = best
			}
			var s Solver = NewMinConflict(opts, nil)
			if name == SimulatedAnnealing {
				s = NewAnnealing(opts, nil)
			}
			p := crowded(t)
			p.Rooms = 2
			res, err := s.Solve(context.Background(), p)
			require.NoError(t, err)
			assertPartition(t, p, res)
			if res.Stats.Iterations > 0 {
				assert.Equal(t, res.Stats.Iterations, calls)
			}
		})
	}
}

func TestLocalSearchSolvesLooseProblem(t *testing.T) {
	defs := make([]taskDef, 0, 8)
	for i := 0; i < 8; i++ {
		dom := make([]int, 32)
		for k := range dom {
			dom[k] = k
		}
		defs = append(defs, taskDef{person: fmt.Sprintf("p-%d", i), week: 2, dom: dom})
	}
	for _, s := range []Solver{
		NewMinConflict(Options{Seed: 11}, nil),
		NewAnnealing(Options{Seed: 11}, nil),
	} {
		p := handmade(1, defs...)
		res, err := s.Solve(context.Background(), p)
		require.NoError(t, err)
		assert.Empty(t, res.Conflicts, s.Name())
		assert.Zero(t, res.Stats.FinalConflicts, s.Name())
		assert.Len(t, res.Assignment, 8, s.Name())
	}
}

func TestCostWeights(t *testing.T) {
	assert.Equal(t, 10.0, Cost(1, 0, 0))
	assert.Equal(t, 20.0, Cost(0, 1, 0))
	assert.Equal(t, 5.0, Cost(0, 0, 1))
	assert.Equal(t, 65.0, Cost(2, 2, 1))
}

func TestDetectAndEvict(t *testing.T) {
	p := handmade(2,
		taskDef{person: "a-1", week: 2, priority: 1, dom: []int{0}},
		taskDef{person: "b-1", week: 2, priority: 0, dom: []int{0}},
		taskDef{person: "a-1", week: 3, priority: 1, dom: []int{0}},
	)
	slot := p.Grid.Slot(0)
	a := model.Assignment{
		p.Tasks[0].ID: {Slot: slot, Room: 1},
		p.Tasks[1].ID: {Slot: slot, Room: 1},
		p.Tasks[2].ID: {Slot: slot, Room: 2},
	}
	cs := Detect(p, a)
	require.Len(t, cs, 2)
	assert.Equal(t, model.RoomConflict, cs[0].Type)
	assert.Equal(t, p.Tasks[0].ID, cs[0].TaskID)
	assert.Equal(t, p.Tasks[1].ID, cs[0].ConflictsWith)
	assert.Equal(t, 1, cs[0].Room)
	assert.Equal(t, model.PersonConflict, cs[1].Type)
	assert.Equal(t, "a-1", cs[1].Person)

	clean, evicted := Evict(p, a)
	assert.Equal(t, []model.TaskID{p.Tasks[0].ID}, evicted)
	assert.Len(t, clean, 2)
	assert.Empty(t, Detect(p, clean))
}

func TestInvalidProblem(t *testing.T) {
	_, err := NewGreedy(nil).Solve(context.Background(), Problem{Grid: oneWeek(), Rooms: 0})
	assert.Error(t, err)
	_, err = NewAnnealing(Options{}, nil).Solve(context.Background(), Problem{Rooms: 1})
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{CSPBacktrack, Greedy, MinConflict, SimulatedAnnealing}, Names())
	_, err := New("tabu", Options{}, nil)
	assert.Error(t, err)
	assert.Error(t, Register(Greedy, func(Options, logger.Logger) Solver { return nil }))
}

func TestInstrumentedMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	ResetMetrics(reg)
	s, err := New(Greedy, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, Greedy, s.Name())

	p := handmade(1,
		taskDef{person: "p-1", week: 2, dom: []int{0}},
		taskDef{person: "q-1", week: 2, dom: []int{0}},
	)
	_, err = s.Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(runsTotal.WithLabelValues(Greedy, "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(unscheduled.WithLabelValues(Greedy)))
	assert.Equal(t, 1, testutil.CollectAndCount(runDuration))
}
