package session

import (
	"errors"
	"testing"
	"time"

	"github.com/kilianp07/slotplan/core/engine"
	"github.com/kilianp07/slotplan/core/model"
)

var window = engine.Window{StartDate: "2025-01-06", EndDate: "2025-01-31"}

func id(person string, week int) model.TaskID {
	return model.TaskID{PersonID: person, GroupID: "g", Week: model.WeekTag{Year: 2025, Week: week}}
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	s := NewMemoryStore()
	sess, err := s.Create(window)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sess.Status != model.SessionDraft || sess.ID == "" {
		t.Fatalf("unexpected session %#v", sess)
	}
	if _, err := s.Archive(sess.ID); err == nil {
		t.Fatalf("draft must not be archived directly")
	}
	if sess, err = s.Activate(sess.ID); err != nil || sess.Status != model.SessionActive {
		t.Fatalf("activate: %v %s", err, sess.Status)
	}
	if _, err := s.Activate(sess.ID); err == nil {
		t.Fatalf("active must not be activated twice")
	}
	if sess, err = s.Archive(sess.ID); err != nil || sess.Status != model.SessionArchived {
		t.Fatalf("archive: %v %s", err, sess.Status)
	}
	if _, err := s.Activate(sess.ID); err == nil {
		t.Fatalf("archived session moved backwards")
	}
}

func TestMemoryStore_UnknownID(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Activate("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_CreateRejectsBadWindow(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Create(engine.Window{StartDate: "soon", EndDate: "2025-01-31"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestMemoryStore_ListByStatus(t *testing.T) {
	s := NewMemoryStore()
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { clock = clock.Add(time.Second); return clock }
	a, _ := s.Create(window)
	b, _ := s.Create(window)
	if _, err := s.Activate(b.ID); err != nil {
		t.Fatal(err)
	}
	all := s.List("")
	if len(all) != 2 || all[0].ID != a.ID {
		t.Fatalf("list all: %#v", all)
	}
	active := s.List(model.SessionActive)
	if len(active) != 1 || active[0].ID != b.ID {
		t.Fatalf("list active: %#v", active)
	}
}

func TestMemoryStore_MergeAssignment(t *testing.T) {
	s := NewMemoryStore()
	sess, _ := s.Create(window)
	start := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	slot := model.Slot{Start: start}
	if err := s.MergeAssignment(sess.ID, nil); err == nil {
		t.Fatalf("merge without result must fail")
	}
	res := &engine.Result{
		Assignment:  map[model.TaskID]model.Booking{id("g-1", 2): {Slot: slot, Room: 1}},
		Unscheduled: []model.TaskID{id("g-1", 3)},
	}
	if err := s.RecordResult(sess.ID, res); err != nil {
		t.Fatal(err)
	}
	later := model.Slot{Start: start.AddDate(0, 0, 7)}
	partial := map[model.TaskID]model.Booking{id("g-1", 3): {Slot: later, Room: 2}}
	if err := s.MergeAssignment(sess.ID, partial); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(sess.ID)
	if len(got.Result.Assignment) != 2 || len(got.Result.Unscheduled) != 0 {
		t.Fatalf("merge result: %#v", got.Result)
	}
	if got.Result.Assignment[id("g-1", 3)].Room != 2 {
		t.Fatalf("partial entry not applied")
	}
	if len(res.Assignment) != 1 {
		t.Fatalf("recorded result was mutated")
	}
	if got.Result.Summary.Scheduled != 2 {
		t.Fatalf("summary not refreshed: %+v", got.Result.Summary)
	}
}

func TestMemoryStore_MergeIntoEmptyAssignment(t *testing.T) {
	s := NewMemoryStore()
	sess, _ := s.Create(window)
	if err := s.RecordResult(sess.ID, &engine.Result{Unscheduled: []model.TaskID{id("g-1", 2)}}); err != nil {
		t.Fatal(err)
	}
	slot := model.Slot{Start: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)}
	partial := map[model.TaskID]model.Booking{id("g-1", 2): {Slot: slot, Room: 1}}
	if err := s.MergeAssignment(sess.ID, partial); err != nil {
		t.Fatal(err)
	}
	partial[id("g-1", 2)] = model.Booking{Slot: slot, Room: 2}
	got, _ := s.Get(sess.ID)
	if b := got.Result.Assignment[id("g-1", 2)]; b.Room != 1 {
		t.Fatalf("stored assignment shares the caller map: %+v", b)
	}
	if len(got.Result.Unscheduled) != 0 || got.Result.Summary.Scheduled != 1 {
		t.Fatalf("merge result: %#v", got.Result)
	}
}

func TestMemoryStore_ArchivedIsReadOnly(t *testing.T) {
	s := NewMemoryStore()
	sess, _ := s.Create(window)
	_, _ = s.Activate(sess.ID)
	_, _ = s.Archive(sess.ID)
	if err := s.RecordResult(sess.ID, &engine.Result{}); err == nil {
		t.Fatalf("archived session accepted a result")
	}
}
