package slots

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/slotplan/core/model"
)

// Hours is the daily working band expressed in minutes since midnight. End
// is exclusive.
type Hours struct {
	Start int `json:"start_minute"`
	End   int `json:"end_minute"`
}

// DefaultHours is 09:00 to 17:00.
var DefaultHours = Hours{Start: 9 * 60, End: 17 * 60}

// Validate checks the band is aligned and non empty.
func (h Hours) Validate() error {
	if h.Start < 0 || h.End > 24*60 || h.Start >= h.End {
		return fmt.Errorf("invalid working hours %d-%d", h.Start, h.End)
	}
	if h.Start%model.SlotMinutes != 0 || h.End%model.SlotMinutes != 0 {
		return fmt.Errorf("working hours must be aligned on %d minutes", model.SlotMinutes)
	}
	return nil
}

// SlotsPerDay returns the number of slots in one working day.
func (h Hours) SlotsPerDay() int { return (h.End - h.Start) / model.SlotMinutes }

// AlignToWeeks expands [start, end] to whole ISO weeks: from the Monday of
// the start week to the Sunday of the end week.
func AlignToWeeks(start, end time.Time) (time.Time, time.Time) {
	s := midnight(start)
	e := midnight(end)
	s = s.AddDate(0, 0, -((int(s.Weekday()) + 6) % 7))
	e = e.AddDate(0, 0, (7-int(e.Weekday()))%7)
	return s, e
}

// Generate returns every weekday slot between start and end (inclusive
// dates) within hours, in chronological order. An inverted range yields no
// slots. Slots use the location of start.
func Generate(start, end time.Time, hours Hours) []model.Slot {
	first := noon(start)
	last := noon(end.In(start.Location()))
	if last.Before(first) || hours.Validate() != nil {
		return nil
	}
	var out []model.Slot
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		for m := hours.Start; m < hours.End; m += model.SlotMinutes {
			s, err := model.NewSlot(day, m)
			if err != nil {
				continue
			}
			out = append(out, s)
		}
	}
	return out
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// noon anchors day iteration. Midnight is skipped on some DST transitions.
func noon(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 12, 0, 0, 0, t.Location())
}

// Grid indexes a generated slot sequence.
type Grid struct {
	slots      []model.Slot
	index      map[string]int
	weeks      []model.WeekTag
	periodWeek map[model.WeekTag]int
	byWeek     map[model.WeekTag][]int
}

// NewGrid indexes slots, which must be in chronological order.
func NewGrid(slots []model.Slot) *Grid {
	g := &Grid{
		slots:      slots,
		index:      make(map[string]int, len(slots)),
		periodWeek: make(map[model.WeekTag]int),
		byWeek:     make(map[model.WeekTag][]int),
	}
	for i, s := range slots {
		g.index[s.Key()] = i
		tag := model.TagOf(s.Start)
		if _, ok := g.byWeek[tag]; !ok {
			g.weeks = append(g.weeks, tag)
		}
		g.byWeek[tag] = append(g.byWeek[tag], i)
	}
	sort.Slice(g.weeks, func(i, j int) bool { return g.weeks[i].Before(g.weeks[j]) })
	for i, w := range g.weeks {
		g.periodWeek[w] = i + 1
	}
	return g
}

// Build generates and indexes the grid of the window in one step.
func Build(start, end time.Time, hours Hours) *Grid {
	return NewGrid(Generate(start, end, hours))
}

// Len returns the number of slots.
func (g *Grid) Len() int { return len(g.slots) }

// Slot returns the slot at index i.
func (g *Grid) Slot(i int) model.Slot { return g.slots[i] }

// Slots returns the ordered slot sequence.
func (g *Grid) Slots() []model.Slot { return g.slots }

// Index returns the position of s in the grid.
func (g *Grid) Index(s model.Slot) (int, bool) {
	i, ok := g.index[s.Key()]
	return i, ok
}

// Weeks returns the distinct ISO weeks of the horizon in chronological order.
func (g *Grid) Weeks() []model.WeekTag { return g.weeks }

// PeriodWeek returns the 1-based position of w in the horizon or 0.
func (g *Grid) PeriodWeek(w model.WeekTag) int { return g.periodWeek[w] }

// PeriodWeekOf returns the period week of the slot at index i.
func (g *Grid) PeriodWeekOf(i int) int { return g.periodWeek[model.TagOf(g.slots[i].Start)] }

// InWeek returns the slot indices of week w.
func (g *Grid) InWeek(w model.WeekTag) []int { return g.byWeek[w] }

// Contiguous reports whether the n slots starting at index i exist and
// follow each other without gap on the same day.
func (g *Grid) Contiguous(i, n int) bool {
	if i < 0 || n <= 0 || i+n > len(g.slots) {
		return false
	}
	step := time.Duration(model.SlotMinutes) * time.Minute
	for k := 1; k < n; k++ {
		if !g.slots[i+k].Start.Equal(g.slots[i+k-1].Start.Add(step)) {
			return false
		}
	}
	return true
}
