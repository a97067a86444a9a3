package engine

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/slotplan/core/conflict"
	"github.com/kilianp07/slotplan/core/domain"
	"github.com/kilianp07/slotplan/core/model"
	"github.com/kilianp07/slotplan/core/slots"
	"github.com/kilianp07/slotplan/core/solver"
)

// Summary gives aggregate figures of a run.
type Summary struct {
	TotalTasks       int            `json:"total_tasks"`
	Scheduled        int            `json:"scheduled"`
	Unscheduled      int            `json:"unscheduled"`
	InvalidTasks     int            `json:"invalid_tasks"`
	MeanDomainSize   float64        `json:"mean_domain_size"`
	DomainSizeStdDev float64        `json:"domain_size_stddev"`
	DailyLoad        map[string]int `json:"daily_load"`
	LoadStdDev       float64        `json:"load_stddev"`
}

// Result is the outcome of a successful run.
type Result struct {
	RunID     string `json:"run_id"`
	Algorithm string `json:"algorithm"`
	RoomCount int    `json:"room_count"`
	// Window is the planning window after alignment to whole weeks.
	Window      Window                         `json:"planning_window"`
	Assignment  map[model.TaskID]model.Booking `json:"assignment"`
	Unscheduled []model.TaskID                 `json:"unscheduled"`
	Diagnostics []domain.Diagnostic            `json:"diagnostics"`
	Stats       solver.Stats                   `json:"stats"`
	Conflicts   []model.Conflict               `json:"conflicts"`
	Resolutions []conflict.Proposal            `json:"resolutions,omitempty"`
	Summary     Summary                        `json:"summary"`
}

// Placements returns the assignment as task placements.
func (r *Result) Placements() model.Assignment {
	a := make(model.Assignment, len(r.Assignment))
	for id, b := range r.Assignment {
		a[id] = model.Placement{Slot: b.Slot, Room: b.Room}
	}
	return a
}

// Invalid returns the tasks whose domain is empty.
func (r *Result) Invalid() []model.TaskID {
	var out []model.TaskID
	for _, d := range r.Diagnostics {
		if d.Status == domain.StatusInvalid {
			out = append(out, d.Task)
		}
	}
	return out
}

func bookings(a model.Assignment, ts []model.Task) map[model.TaskID]model.Booking {
	out := make(map[model.TaskID]model.Booking, len(a))
	for _, t := range ts {
		p, ok := a[t.ID]
		if !ok {
			continue
		}
		out[t.ID] = model.Booking{
			Slot:  p.Slot,
			Room:  p.Room,
			Start: p.Slot.Start,
			End:   p.Slot.Start.Add(minutes(t.Duration)),
		}
	}
	return out
}

func summarize(grid *slots.Grid, ts []model.Task, doms domain.Set, diags []domain.Diagnostic, a model.Assignment) Summary {
	s := Summary{TotalTasks: len(ts), Scheduled: len(a), Unscheduled: len(ts) - len(a), DailyLoad: map[string]int{}}
	for _, d := range diags {
		if d.Status == domain.StatusInvalid {
			s.InvalidTasks++
		}
	}
	sizes := make([]float64, 0, len(ts))
	for _, t := range ts {
		sizes = append(sizes, float64(doms.Size(t.ID)))
	}
	if len(sizes) > 0 {
		s.MeanDomainSize, s.DomainSizeStdDev = stat.PopMeanStdDev(sizes, nil)
	}

	for _, sl := range grid.Slots() {
		s.DailyLoad[sl.Date()] = 0
	}
	for _, t := range ts {
		if p, ok := a[t.ID]; ok {
			s.DailyLoad[p.Slot.Date()] += t.Duration
		}
	}
	if len(s.DailyLoad) > 0 {
		days := make([]string, 0, len(s.DailyLoad))
		for d := range s.DailyLoad {
			days = append(days, d)
		}
		sort.Strings(days)
		load := make([]float64, len(days))
		for i, d := range days {
			load[i] = float64(s.DailyLoad[d])
		}
		_, s.LoadStdDev = stat.PopMeanStdDev(load, nil)
	}
	return s
}
