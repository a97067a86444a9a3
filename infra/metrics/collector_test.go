package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/slotplan/core/events"
	coremetrics "github.com/kilianp07/slotplan/core/metrics"
	"github.com/kilianp07/slotplan/core/model"
	"github.com/kilianp07/slotplan/internal/eventbus"
)

type recordingSink struct {
	mu        sync.Mutex
	solves    []coremetrics.SolveRecord
	strategy  []coremetrics.StrategyRecord
	conflicts []coremetrics.ConflictRecord
}

func (r *recordingSink) RecordSolve(rec coremetrics.SolveRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solves = append(r.solves, rec)
	return nil
}

func (r *recordingSink) RecordStrategy(rec coremetrics.StrategyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategy = append(r.strategy, rec)
	return nil
}

func (r *recordingSink) RecordConflict(rec coremetrics.ConflictRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conflicts = append(r.conflicts, rec)
	return nil
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New[events.Event](8)
	sink := &recordingSink{}
	done := StartEventCollector(context.Background(), bus, sink)

	bus.Publish(events.StrategyEvent{RunID: "r1", Action: "attempt", Rooms: 1, Unscheduled: 2})
	bus.Publish(events.ConflictEvent{RunID: "r1", Conflict: model.Conflict{Type: model.RoomConflict}})
	bus.Publish(events.SolveEvent{RunID: "r1", Algorithm: "greedy", Scheduled: 4, Duration: time.Second})
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("collector did not stop")
	}
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.solves) != 1 || sink.solves[0].Scheduled != 4 || sink.solves[0].Time.IsZero() {
		t.Fatalf("solve not forwarded: %+v", sink.solves)
	}
	if len(sink.strategy) != 1 || sink.strategy[0].Action != "attempt" {
		t.Fatalf("strategy not forwarded: %+v", sink.strategy)
	}
	if len(sink.conflicts) != 1 {
		t.Fatalf("conflict not forwarded: %+v", sink.conflicts)
	}
}

func TestStartEventCollectorStopsOnCancel(t *testing.T) {
	bus := eventbus.New[events.Event](1)
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := StartEventCollector(ctx, bus, coremetrics.NopSink{})
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("collector did not stop")
	}
}

func TestStartEventCollectorNilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, coremetrics.NopSink{})
	select {
	case <-done:
	default:
		t.Fatalf("expected closed channel")
	}
}
