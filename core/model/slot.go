package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// SlotKeyLayout formats slot keys. Keys sort lexicographically in time order.
const SlotKeyLayout = "2006-01-02 15:04"

// Slot is an atomic bookable 15 minute unit identified by its start.
type Slot struct {
	Start time.Time
}

// NewSlot builds a slot on date at the given minute of day. The minute must
// be aligned on the slot granularity.
func NewSlot(date time.Time, minuteOfDay int) (Slot, error) {
	if minuteOfDay < 0 || minuteOfDay >= 24*60 || minuteOfDay%SlotMinutes != 0 {
		return Slot{}, fmt.Errorf("minute of day %d is not aligned on %d minutes", minuteOfDay, SlotMinutes)
	}
	y, m, d := date.Date()
	// wall clock construction, midnight may not exist on DST days
	start := time.Date(y, m, d, minuteOfDay/60, minuteOfDay%60, 0, 0, date.Location())
	return Slot{Start: start}, nil
}

// End returns the exclusive end of the slot.
func (s Slot) End() time.Time { return s.Start.Add(SlotMinutes * time.Minute) }

// Date returns the slot day formatted as YYYY-MM-DD.
func (s Slot) Date() string { return s.Start.Format("2006-01-02") }

// Weekday returns the day of week of the slot.
func (s Slot) Weekday() time.Weekday { return s.Start.Weekday() }

// MinuteOfDay returns the number of minutes since midnight.
func (s Slot) MinuteOfDay() int { return s.Start.Hour()*60 + s.Start.Minute() }

// Key returns the canonical slot key.
func (s Slot) Key() string { return s.Start.Format(SlotKeyLayout) }

// Equal compares two slots by value.
func (s Slot) Equal(o Slot) bool { return s.Start.Equal(o.Start) }

func (s Slot) String() string { return s.Key() }

// MarshalJSON encodes the slot as its key.
func (s Slot) MarshalJSON() ([]byte, error) { return json.Marshal(s.Key()) }

// UnmarshalJSON decodes a slot key in UTC.
func (s *Slot) UnmarshalJSON(b []byte) error {
	var key string
	if err := json.Unmarshal(b, &key); err != nil {
		return err
	}
	t, err := time.Parse(SlotKeyLayout, key)
	if err != nil {
		return fmt.Errorf("invalid slot %q: %w", key, err)
	}
	s.Start = t
	return nil
}
