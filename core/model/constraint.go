package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ConstraintType is the kind of a group constraint.
type ConstraintType string

const (
	NotDay  ConstraintType = "not_day"
	OnlyDay ConstraintType = "only_day"
)

// WeekScope restricts a group constraint to one period-relative week. The
// zero value applies to every week.
type WeekScope int

// AllWeeks is the scope covering the whole horizon.
const AllWeeks WeekScope = 0

// Covers reports whether the scope includes the 1-based period week.
func (w WeekScope) Covers(periodWeek int) bool {
	return w == AllWeeks || int(w) == periodWeek
}

func (w WeekScope) String() string {
	if w == AllWeeks {
		return "all"
	}
	return strconv.Itoa(int(w))
}

// MarshalJSON encodes the scope as "all" or the week number.
func (w WeekScope) MarshalJSON() ([]byte, error) {
	if w == AllWeeks {
		return []byte(`"all"`), nil
	}
	return json.Marshal(int(w))
}

// UnmarshalJSON accepts "all", a number or a numeric string.
func (w *WeekScope) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return w.set(raw)
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON.
func (w *WeekScope) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return w.set(raw)
}

func (w *WeekScope) set(raw any) error {
	switch v := raw.(type) {
	case nil:
		*w = AllWeeks
	case float64:
		*w = WeekScope(int(v))
	case int:
		*w = WeekScope(v)
	case string:
		s := strings.TrimSpace(strings.ToLower(v))
		if s == "" || s == "all" {
			*w = AllWeeks
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid week scope %q", v)
		}
		*w = WeekScope(n)
	default:
		return fmt.Errorf("invalid week scope %v", raw)
	}
	if *w < 0 {
		return fmt.Errorf("negative week scope %d", int(*w))
	}
	return nil
}

// GroupConstraint is a hard weekday rule for a whole group.
type GroupConstraint struct {
	Group string         `json:"group" yaml:"group" validate:"required"`
	Week  WeekScope      `json:"week" yaml:"week"`
	Type  ConstraintType `json:"type" yaml:"type" validate:"required,oneof=not_day only_day"`
	Value Day            `json:"value" yaml:"value"`
}

// Validate checks the constraint is well formed.
func (c GroupConstraint) Validate() error {
	if c.Type != NotDay && c.Type != OnlyDay {
		return fmt.Errorf("constraint on %s: unknown type %q", c.Group, c.Type)
	}
	if !c.Value.Set {
		return fmt.Errorf("constraint on %s: day of week is required", c.Group)
	}
	return nil
}

// Allows reports whether a slot on wd in the given period week survives the
// constraint.
func (c GroupConstraint) Allows(wd time.Weekday, periodWeek int) bool {
	if !c.Week.Covers(periodWeek) {
		return true
	}
	switch c.Type {
	case NotDay:
		return wd != c.Value.Weekday
	case OnlyDay:
		return wd == c.Value.Weekday
	}
	return true
}

// Describe returns a human readable description used in diagnostics.
func (c GroupConstraint) Describe() string {
	verb := "excluded"
	if c.Type == OnlyDay {
		verb = "only"
	}
	return fmt.Sprintf("%s %s (week %s)", verb, c.Value, c.Week)
}

// TimeRange is an availability window expressed in epoch milliseconds.
type TimeRange struct {
	Start int64 `json:"start" yaml:"start"`
	End   int64 `json:"end" yaml:"end"`
}

// Contains reports whether [from, to) lies within the range.
func (r TimeRange) Contains(from, to time.Time) bool {
	return from.UnixMilli() >= r.Start && to.UnixMilli() <= r.End
}

// IndividualConstraints maps person ids to their allow-listed ranges.
type IndividualConstraints map[string][]TimeRange

// Allows reports whether the person is available over [from, to). People
// without an entry are always available.
func (ic IndividualConstraints) Allows(personID string, from, to time.Time) bool {
	ranges, ok := ic[personID]
	if !ok {
		return true
	}
	for _, r := range ranges {
		if r.Contains(from, to) {
			return true
		}
	}
	return false
}

// Has reports whether an allow-list exists for the person.
func (ic IndividualConstraints) Has(personID string) bool {
	_, ok := ic[personID]
	return ok
}
