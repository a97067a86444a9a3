package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/slotplan/core/metrics"
	"github.com/kilianp07/slotplan/core/model"
	"github.com/kilianp07/slotplan/core/solver"
)

type lineServer struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineServer) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(data)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (l *lineServer) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.bodies...)
}

func TestInfluxSink_RecordSolve(t *testing.T) {
	ls := &lineServer{}
	srv := ls.start(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Token: "token", Org: "org", Bucket: "bucket"})
	defer func() { _ = sink.Close() }()

	now := time.Now()
	rec := coremetrics.SolveRecord{
		RunID:       "r1",
		Algorithm:   solver.CSPBacktrack,
		Rooms:       2,
		Tasks:       12,
		Scheduled:   11,
		Unscheduled: 1,
		Stats:       solver.Stats{Backtracks: 7, TimedOut: true},
		Duration:    1500 * time.Millisecond,
		Time:        now,
	}
	if err := sink.RecordSolve(rec); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("solve_run").
		AddTag("algorithm", "csp_backtrack").
		AddTag("rooms", "2").
		AddTag("timed_out", "true").
		AddTag("run_id", "r1").
		AddField("tasks", 12).
		AddField("scheduled", 11).
		AddField("unscheduled", 1).
		AddField("invalid", 0).
		AddField("conflicts", 0).
		AddField("backtracks", 7).
		AddField("iterations", 0).
		AddField("final_cost", 0.0).
		AddField("duration_ms", 1500.0).
		SetTime(now)
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if got := ls.lines(); len(got) != 1 || got[0] != expected {
		t.Errorf("unexpected bodies: %#v", got)
	}
}

func TestInfluxSink_RecordFailedSolve(t *testing.T) {
	ls := &lineServer{}
	srv := ls.start(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL + "/api/v2/write", Org: "org", Bucket: "bucket"})
	defer func() { _ = sink.Close() }()

	if err := sink.RecordSolve(coremetrics.SolveRecord{RunID: "r2", Algorithm: "greedy", ErrorCode: "no_workable_days", Time: time.Now()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := ls.lines(); len(got) != 1 || !strings.Contains(got[0], "error_code=no_workable_days") {
		t.Errorf("bodies: %#v", got)
	}
}

func TestInfluxSink_RecordConflictAndStrategy(t *testing.T) {
	ls := &lineServer{}
	srv := ls.start(t)
	sink := NewInfluxSink(InfluxConfig{URL: srv.URL, Org: "org", Bucket: "bucket"})
	defer func() { _ = sink.Close() }()

	slot := model.Slot{Start: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)}
	a := model.TaskID{PersonID: "g-1", GroupID: "g", Week: model.WeekTag{Year: 2025, Week: 2}}
	b := model.TaskID{PersonID: "g-2", GroupID: "g", Week: model.WeekTag{Year: 2025, Week: 2}}
	if err := sink.RecordConflict(coremetrics.ConflictRecord{
		RunID: "r1", Algorithm: "min_conflict",
		Conflict: model.Conflict{Type: model.RoomConflict, TaskID: a, ConflictsWith: b, Slot: slot, Room: 1},
		Time:     time.Now(),
	}); err != nil {
		t.Fatalf("conflict: %v", err)
	}
	if err := sink.RecordStrategy(coremetrics.StrategyRecord{RunID: "r1", Algorithm: "greedy", Action: "retry", Rooms: 2, Time: time.Now()}); err != nil {
		t.Fatalf("strategy: %v", err)
	}
	got := ls.lines()
	if len(got) != 2 {
		t.Fatalf("bodies: %#v", got)
	}
	if !strings.HasPrefix(got[0], "solve_conflict,algorithm=min_conflict,type=room_conflict") ||
		!strings.Contains(got[0], `task="g-1_2025-W02"`) {
		t.Errorf("conflict line: %s", got[0])
	}
	if !strings.HasPrefix(got[1], "room_strategy,algorithm=greedy,action=retry") {
		t.Errorf("strategy line: %s", got[1])
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: srv.URL + "/api/v2/write", Token: "tok", Org: "org", Bucket: "bucket"})
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
