// Package session tracks planning sessions. A session moves from draft to
// active to archived on caller request only; the engine never changes it.
package session

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/slotplan/core/engine"
	"github.com/kilianp07/slotplan/core/model"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Session is one planning horizon under edition.
type Session struct {
	ID        string              `json:"id"`
	Status    model.SessionStatus `json:"status"`
	Window    engine.Window       `json:"planning_window"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
	// Result is the latest result recorded for the session.
	Result *engine.Result `json:"result,omitempty"`
}

type Store interface {
	Create(w engine.Window) (Session, error)
	Activate(id string) (Session, error)
	Archive(id string) (Session, error)
	Get(id string) (Session, error)
	List(status model.SessionStatus) []Session
	RecordResult(id string, res *engine.Result) error
	MergeAssignment(id string, partial map[model.TaskID]model.Booking) error
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Session
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Session{}, now: time.Now}
}

// Create registers a draft session for w.
func (s *MemoryStore) Create(w engine.Window) (Session, error) {
	if _, _, err := w.Parse(time.UTC); err != nil {
		return Session{}, err
	}
	now := s.now()
	sess := Session{ID: uuid.NewString(), Status: model.SessionDraft, Window: w, CreatedAt: now, UpdatedAt: now}
	s.mu.Lock()
	s.data[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *MemoryStore) Activate(id string) (Session, error) {
	return s.transition(id, model.SessionActive)
}

func (s *MemoryStore) Archive(id string) (Session, error) {
	return s.transition(id, model.SessionArchived)
}

func (s *MemoryStore) transition(id string, next model.SessionStatus) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	st, err := sess.Status.Transition(next)
	if err != nil {
		return sess, err
	}
	sess.Status = st
	sess.UpdatedAt = s.now()
	s.data[id] = sess
	return sess, nil
}

func (s *MemoryStore) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.data[id]
	if !ok {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return sess, nil
}

// List returns the sessions in status, or all of them when status is
// empty, oldest first.
func (s *MemoryStore) List(status model.SessionStatus) []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Session, 0, len(s.data))
	for _, sess := range s.data {
		if status != "" && sess.Status != status {
			continue
		}
		res = append(res, sess)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res
}

// RecordResult caches res as the latest result. Archived sessions are
// read-only.
func (s *MemoryStore) RecordResult(id string, res *engine.Result) error {
	if res == nil {
		return fmt.Errorf("nil result")
	}
	return s.update(id, func(sess *Session) {
		sess.Result = res
	})
}

// MergeAssignment overwrites the cached assignment with the entries of
// partial, typically a re-solved week range. Tasks in partial are removed
// from the cached unscheduled list.
func (s *MemoryStore) MergeAssignment(id string, partial map[model.TaskID]model.Booking) error {
	var err error
	uerr := s.update(id, func(sess *Session) {
		if sess.Result == nil {
			err = fmt.Errorf("session %s has no result to merge into", id)
			return
		}
		merged := *sess.Result
		merged.Assignment = maps.Clone(sess.Result.Assignment)
		if merged.Assignment == nil {
			merged.Assignment = make(map[model.TaskID]model.Booking, len(partial))
		}
		maps.Copy(merged.Assignment, partial)
		merged.Unscheduled = nil
		for _, u := range sess.Result.Unscheduled {
			if _, ok := partial[u]; !ok {
				merged.Unscheduled = append(merged.Unscheduled, u)
			}
		}
		merged.Summary.Scheduled = len(merged.Assignment)
		merged.Summary.Unscheduled = len(merged.Unscheduled)
		sess.Result = &merged
	})
	if uerr != nil {
		return uerr
	}
	return err
}

func (s *MemoryStore) update(id string, f func(*Session)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if sess.Status == model.SessionArchived {
		return fmt.Errorf("session %s is archived", id)
	}
	f(&sess)
	sess.UpdatedAt = s.now()
	s.data[id] = sess
	return nil
}
