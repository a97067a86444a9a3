package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SlotMinutes is the granularity of the slot grid.
const SlotMinutes = 15

// Frequency defines how often a person of a group needs an appointment.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "every_2_weeks"
	FrequencyMonthly  Frequency = "monthly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// Pattern selects the period-relative weeks used by biweekly groups.
type Pattern string

const (
	PatternAny  Pattern = "any"
	PatternOdd  Pattern = "odd"
	PatternEven Pattern = "even"
)

// Matches reports whether the 1-based period week index satisfies the pattern.
func (p Pattern) Matches(periodWeek int) bool {
	switch p {
	case PatternOdd:
		return periodWeek%2 == 1
	case PatternEven:
		return periodWeek%2 == 0
	default:
		return true
	}
}

// Valid reports whether p is a known pattern. The empty pattern means any.
func (p Pattern) Valid() bool {
	switch p {
	case "", PatternAny, PatternOdd, PatternEven:
		return true
	}
	return false
}

// Day is an optional weekday. The zero value means no preference.
type Day struct {
	Weekday time.Weekday
	Set     bool
}

// AnyDay is the absence of a day preference.
var AnyDay = Day{}

// On returns a Day set to wd.
func On(wd time.Weekday) Day { return Day{Weekday: wd, Set: true} }

// Matches reports whether t falls on the day. An unset day matches nothing.
func (d Day) Matches(wd time.Weekday) bool { return d.Set && d.Weekday == wd }

func (d Day) String() string {
	if !d.Set {
		return "any"
	}
	return d.Weekday.String()
}

// MarshalJSON encodes the day as its weekday number or "any".
func (d Day) MarshalJSON() ([]byte, error) {
	if !d.Set {
		return []byte(`"any"`), nil
	}
	return json.Marshal(int(d.Weekday))
}

// UnmarshalJSON accepts a weekday number (0 = Sunday), a weekday name or "any".
func (d *Day) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := parseDay(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML documents.
func (d *Day) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := parseDay(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func parseDay(raw any) (Day, error) {
	switch v := raw.(type) {
	case nil:
		return AnyDay, nil
	case float64:
		return dayFromInt(int(v))
	case int:
		return dayFromInt(v)
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		if s == "" || s == "any" {
			return AnyDay, nil
		}
		var n int
		if _, err := fmt.Sscanf(s, "%d", &n); err == nil {
			return dayFromInt(n)
		}
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			name := strings.ToLower(wd.String())
			if s == name || s == name[:3] {
				return On(wd), nil
			}
		}
	}
	return AnyDay, fmt.Errorf("invalid day %v", raw)
}

func dayFromInt(n int) (Day, error) {
	if n < 0 || n > 6 {
		return AnyDay, fmt.Errorf("day of week out of range: %d", n)
	}
	return On(time.Weekday(n)), nil
}

// Group is a set of people sharing the same appointment requirements.
type Group struct {
	ID           string    `json:"id" yaml:"id" validate:"required"`
	Name         string    `json:"name" yaml:"name"`
	Count        int       `json:"count" yaml:"count" validate:"gte=0"`
	Duration     int       `json:"duration" yaml:"duration" validate:"gt=0"`
	Frequency    Frequency `json:"freq" yaml:"freq" validate:"required"`
	Pattern      Pattern   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	PreferredDay Day       `json:"preferredDay" yaml:"preferredDay"`

	// Priority is the rank of the group in the priority list, 0 being the
	// most important. It is derived, never read from input.
	Priority int `json:"-" yaml:"-"`
}

// Validate checks the group invariants.
func (g Group) Validate() error {
	if g.ID == "" {
		return fmt.Errorf("group id is required")
	}
	if g.Count < 0 {
		return fmt.Errorf("group %s: negative count", g.ID)
	}
	if g.Duration <= 0 || g.Duration%SlotMinutes != 0 {
		return fmt.Errorf("group %s: duration %d is not a positive multiple of %d", g.ID, g.Duration, SlotMinutes)
	}
	if !g.Frequency.Valid() {
		return fmt.Errorf("group %s: unknown frequency %q", g.ID, g.Frequency)
	}
	if !g.Pattern.Valid() {
		return fmt.Errorf("group %s: unknown pattern %q", g.ID, g.Pattern)
	}
	return nil
}

// SlotCount returns the number of contiguous slots an appointment occupies.
func (g Group) SlotCount() int { return g.Duration / SlotMinutes }

// PersonID returns the identifier of the n-th (1-based) person of the group.
func (g Group) PersonID(n int) string { return fmt.Sprintf("%s-%d", g.ID, n) }

// RankGroups assigns Priority to every group following order. Groups missing
// from order keep their relative input order after the listed ones.
func RankGroups(groups []Group, order []string) []Group {
	rank := make(map[string]int, len(order))
	for i, id := range order {
		if _, dup := rank[id]; !dup {
			rank[id] = i
		}
	}
	out := make([]Group, len(groups))
	next := len(order)
	for i, g := range groups {
		if r, ok := rank[g.ID]; ok {
			g.Priority = r
		} else {
			g.Priority = next
			next++
		}
		out[i] = g
	}
	return out
}
