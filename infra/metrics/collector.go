package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/slotplan/core/events"
	coremetrics "github.com/kilianp07/slotplan/core/metrics"
	coremon "github.com/kilianp07/slotplan/core/monitoring"
	"github.com/kilianp07/slotplan/infra/logger"
	"github.com/kilianp07/slotplan/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and forwards engine events
// to sink. It stops when the context is canceled or the bus is closed; the
// returned channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		defer coremon.Recover(map[string]string{"module": "metrics-collector"})
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := forward(ev, sink); err != nil {
					log.Warnf("record %s event: %v", ev.EventName(), err)
				}
			}
		}
	}()
	return done
}

func forward(ev events.Event, sink coremetrics.MetricsSink) error {
	switch e := ev.(type) {
	case events.SolveEvent:
		ts := e.Time
		if ts.IsZero() {
			ts = time.Now()
		}
		return sink.RecordSolve(coremetrics.SolveRecord{
			RunID:       e.RunID,
			Algorithm:   e.Algorithm,
			Rooms:       e.Rooms,
			Tasks:       e.Tasks,
			Scheduled:   e.Scheduled,
			Unscheduled: e.Unscheduled,
			Invalid:     e.Invalid,
			Conflicts:   e.Conflicts,
			Stats:       e.Stats,
			Duration:    e.Duration,
			ErrorCode:   e.ErrorCode,
			Time:        ts,
		})
	case events.StrategyEvent:
		if r, ok := sink.(coremetrics.StrategyRecorder); ok {
			return r.RecordStrategy(coremetrics.StrategyRecord{
				RunID:       e.RunID,
				Algorithm:   e.Algorithm,
				Action:      e.Action,
				Rooms:       e.Rooms,
				Unscheduled: e.Unscheduled,
				Time:        time.Now(),
			})
		}
	case events.ConflictEvent:
		if r, ok := sink.(coremetrics.ConflictRecorder); ok {
			return r.RecordConflict(coremetrics.ConflictRecord{
				RunID:     e.RunID,
				Algorithm: e.Algorithm,
				Conflict:  e.Conflict,
				Evicted:   e.Evicted,
				Time:      time.Now(),
			})
		}
	}
	return nil
}
