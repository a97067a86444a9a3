package domain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/slotplan/core/logger"
	"github.com/kilianp07/slotplan/core/model"
	"github.com/kilianp07/slotplan/core/slots"
)

// ErrTimeout is returned when the computation exceeds its budget.
var ErrTimeout = errors.New("domain generation timed out")

// Status tells whether a task has at least one valid start.
type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
)

// Stage types recorded in diagnostics besides the group constraint types.
const (
	StageEnabledWeeks = "enabled_weeks"
	StageAvailability = "individual_availability"
	StageDuration     = "duration"
)

// Stage is the trace of one filter.
type Stage struct {
	Type        string `json:"type"`
	Description string `json:"desc"`
	Removed     int    `json:"removed"`
	Remaining   int    `json:"remaining"`
}

// Diagnostic explains how the domain of a task was built.
type Diagnostic struct {
	Task         model.TaskID `json:"task"`
	InitialSlots int          `json:"initialSlots"`
	Constraints  []Stage      `json:"constraints"`
	FinalSlots   int          `json:"finalSlots"`
	Status       Status       `json:"status"`
}

// Set maps task ids to their ordered valid start indices in the grid.
type Set map[model.TaskID][]int

// Size returns the domain size of id.
func (s Set) Size(id model.TaskID) int { return len(s[id]) }

// Calculator holds the read-only inputs shared by every task of a solve.
type Calculator struct {
	Grid        *slots.Grid
	Constraints []model.GroupConstraint
	Individual  model.IndividualConstraints
	// EnabledWeeks restricts monthly groups to the listed period weeks.
	// Groups without an entry may use every week.
	EnabledWeeks map[string][]int
	// Timeout bounds the whole computation. Zero disables the check.
	Timeout time.Duration
	// Now is the clock, time.Now when nil.
	Now func() time.Time
	Log logger.Logger
}

// Compute builds the domains and diagnostics of tasks, in task order.
func (c *Calculator) Compute(ctx context.Context, tasks []model.Task) (Set, []Diagnostic, error) {
	if c.Grid == nil {
		return nil, nil, fmt.Errorf("domain: nil grid")
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}
	log := logger.OrNop(c.Log)
	started := now()

	byGroup := make(map[string][]model.GroupConstraint)
	for _, gc := range c.Constraints {
		byGroup[gc.Group] = append(byGroup[gc.Group], gc)
	}

	set := make(Set, len(tasks))
	diags := make([]Diagnostic, 0, len(tasks))
	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		if c.Timeout > 0 && now().Sub(started) > c.Timeout {
			return nil, nil, ErrTimeout
		}
		dom, diag := c.compute(t, byGroup[t.ID.GroupID])
		set[t.ID] = dom
		diags = append(diags, diag)
		if diag.Status == StatusInvalid {
			log.Warnf("task %s has no valid start", t.ID)
		}
	}
	log.Debugw("domains computed", map[string]any{"tasks": len(tasks), "elapsed": now().Sub(started).String()})
	return set, diags, nil
}

func (c *Calculator) compute(t model.Task, constraints []model.GroupConstraint) ([]int, Diagnostic) {
	g := c.Grid
	diag := Diagnostic{Task: t.ID}

	var keep []int
	if t.ID.Week.IsMonthly() {
		keep = make([]int, g.Len())
		for i := range keep {
			keep[i] = i
		}
		diag.InitialSlots = len(keep)
		if weeks, ok := c.EnabledWeeks[t.ID.GroupID]; ok {
			enabled := make(map[int]bool, len(weeks))
			for _, w := range weeks {
				enabled[w] = true
			}
			keep = diag.filter(keep, StageEnabledWeeks, fmt.Sprintf("enabled weeks %v", weeks), func(i int) bool {
				return enabled[g.PeriodWeekOf(i)]
			})
		}
	} else {
		keep = append([]int(nil), g.InWeek(t.ID.Week)...)
		diag.InitialSlots = len(keep)
	}

	for _, gc := range constraints {
		gc := gc
		keep = diag.filter(keep, string(gc.Type), gc.Describe(), func(i int) bool {
			s := g.Slot(i)
			return gc.Allows(s.Weekday(), g.PeriodWeekOf(i))
		})
	}

	if c.Individual.Has(t.Person()) {
		ranges := len(c.Individual[t.Person()])
		keep = diag.filter(keep, StageAvailability, fmt.Sprintf("allow-list of %d ranges", ranges), func(i int) bool {
			s := g.Slot(i)
			return c.Individual.Allows(t.Person(), s.Start, s.End())
		})
	}

	n := t.SlotCount()
	available := make(map[int]bool, len(keep))
	for _, i := range keep {
		available[i] = true
	}
	keep = diag.filter(keep, StageDuration, fmt.Sprintf("%d contiguous slots", n), func(i int) bool {
		if !g.Contiguous(i, n) {
			return false
		}
		for k := 1; k < n; k++ {
			if !available[i+k] {
				return false
			}
		}
		return true
	})

	order(g, keep, t.PreferredDay)
	diag.FinalSlots = len(keep)
	diag.Status = StatusValid
	if len(keep) == 0 {
		diag.Status = StatusInvalid
	}
	return keep, diag
}

// filter keeps the indices accepted by fn and records the stage.
func (d *Diagnostic) filter(in []int, typ, desc string, fn func(int) bool) []int {
	out := in[:0:0]
	for _, i := range in {
		if fn(i) {
			out = append(out, i)
		}
	}
	d.Constraints = append(d.Constraints, Stage{
		Type:        typ,
		Description: desc,
		Removed:     len(in) - len(out),
		Remaining:   len(out),
	})
	return out
}

// order puts slots on the preferred day first, then chronologically.
func order(g *slots.Grid, idx []int, preferred model.Day) {
	sort.SliceStable(idx, func(a, b int) bool {
		pa := preferred.Matches(g.Slot(idx[a]).Weekday())
		pb := preferred.Matches(g.Slot(idx[b]).Weekday())
		if pa != pb {
			return pa
		}
		return idx[a] < idx[b]
	})
}
