package model

import (
	"fmt"
	"strings"
	"time"
)

// WeekTag identifies the ISO week a task belongs to. The zero value tags a
// monthly task that may land in any enabled week.
type WeekTag struct {
	Year int
	Week int
}

// Monthly is the tag of tasks not bound to a specific week.
var Monthly = WeekTag{}

// TagOf returns the ISO week tag of t.
func TagOf(t time.Time) WeekTag {
	y, w := t.ISOWeek()
	return WeekTag{Year: y, Week: w}
}

// IsMonthly reports whether the tag is the monthly tag.
func (w WeekTag) IsMonthly() bool { return w == Monthly }

// Before orders week tags chronologically.
func (w WeekTag) Before(o WeekTag) bool {
	if w.Year != o.Year {
		return w.Year < o.Year
	}
	return w.Week < o.Week
}

func (w WeekTag) String() string {
	if w.IsMonthly() {
		return "monthly"
	}
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Week)
}

// TaskID is the composite identity of a task.
type TaskID struct {
	PersonID string
	GroupID  string
	Week     WeekTag
}

func (id TaskID) String() string { return id.PersonID + "_" + id.Week.String() }

// MarshalText lets TaskID be used as a JSON map key.
func (id TaskID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

// UnmarshalText parses the form produced by String. The group id is
// recovered from the person id.
func (id *TaskID) UnmarshalText(b []byte) error {
	s := string(b)
	cut := strings.LastIndex(s, "_")
	if cut <= 0 {
		return fmt.Errorf("invalid task id %q", s)
	}
	person, tag := s[:cut], s[cut+1:]
	week, err := ParseWeekTag(tag)
	if err != nil {
		return fmt.Errorf("invalid task id %q: %w", s, err)
	}
	group := person
	if dash := strings.LastIndex(person, "-"); dash > 0 {
		group = person[:dash]
	}
	*id = TaskID{PersonID: person, GroupID: group, Week: week}
	return nil
}

// ParseWeekTag parses "monthly" or "YYYY-Www".
func ParseWeekTag(s string) (WeekTag, error) {
	if s == "monthly" {
		return Monthly, nil
	}
	var w WeekTag
	if _, err := fmt.Sscanf(s, "%04d-W%02d", &w.Year, &w.Week); err != nil {
		return WeekTag{}, fmt.Errorf("invalid week tag %q", s)
	}
	return w, nil
}

// Task is one required appointment occurrence.
type Task struct {
	ID          TaskID
	PersonIndex int
	Duration    int
	Priority    int
	// PeriodWeek is the 1-based position of the task week in the horizon,
	// 0 for monthly tasks.
	PeriodWeek   int
	PreferredDay Day
}

// NewTask builds a task for the n-th person of g in week. periodWeek is
// ignored for monthly tasks.
func NewTask(g Group, person int, week WeekTag, periodWeek int) (Task, error) {
	if person <= 0 {
		return Task{}, fmt.Errorf("group %s: person index must be positive", g.ID)
	}
	if g.Duration <= 0 || g.Duration%SlotMinutes != 0 {
		return Task{}, fmt.Errorf("group %s: duration %d is not a positive multiple of %d", g.ID, g.Duration, SlotMinutes)
	}
	if week.IsMonthly() {
		periodWeek = 0
	} else if periodWeek <= 0 {
		return Task{}, fmt.Errorf("group %s: period week must be positive", g.ID)
	}
	return Task{
		ID:           TaskID{PersonID: g.PersonID(person), GroupID: g.ID, Week: week},
		PersonIndex:  person,
		Duration:     g.Duration,
		Priority:     g.Priority,
		PeriodWeek:   periodWeek,
		PreferredDay: g.PreferredDay,
	}, nil
}

// SlotCount returns the number of contiguous slots the task occupies.
func (t Task) SlotCount() int { return t.Duration / SlotMinutes }

// Person returns the id of the person the task belongs to.
func (t Task) Person() string { return t.ID.PersonID }
