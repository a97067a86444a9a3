package model

import "time"

// Placement is the slot and room a task starts in. Rooms are 1-based.
type Placement struct {
	Slot Slot `json:"slot"`
	Room int  `json:"room"`
}

// Assignment maps tasks to their placement.
type Assignment map[TaskID]Placement

// Booking is the serialisable form of one assignment entry.
type Booking struct {
	Slot  Slot      `json:"slot"`
	Room  int       `json:"room"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ConflictType distinguishes room and person double bookings.
type ConflictType string

const (
	RoomConflict   ConflictType = "room_conflict"
	PersonConflict ConflictType = "person_conflict"
)

// Conflict is a detected double booking between two tasks.
type Conflict struct {
	Type          ConflictType `json:"type"`
	TaskID        TaskID       `json:"taskId"`
	ConflictsWith TaskID       `json:"conflictsWith"`
	Slot          Slot         `json:"slot"`
	Room          int          `json:"room,omitempty"`
	Person        string       `json:"person,omitempty"`
}
