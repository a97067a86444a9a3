package model

import "fmt"

// SessionStatus is the lifecycle state of a planning session.
type SessionStatus string

const (
	SessionDraft    SessionStatus = "draft"
	SessionActive   SessionStatus = "active"
	SessionArchived SessionStatus = "archived"
)

var sessionOrder = map[SessionStatus]int{
	SessionDraft:    0,
	SessionActive:   1,
	SessionArchived: 2,
}

// Valid reports whether s is a known status.
func (s SessionStatus) Valid() bool {
	_, ok := sessionOrder[s]
	return ok
}

// CanTransition reports whether moving from s to next is allowed. Only the
// direct forward step is permitted.
func (s SessionStatus) CanTransition(next SessionStatus) bool {
	from, ok1 := sessionOrder[s]
	to, ok2 := sessionOrder[next]
	return ok1 && ok2 && to == from+1
}

// Transition returns next or an error when the move is not allowed.
func (s SessionStatus) Transition(next SessionStatus) (SessionStatus, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("invalid session transition %s -> %s", s, next)
	}
	return next, nil
}
