package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/slotplan/core/engine"
	"github.com/kilianp07/slotplan/core/events"
	"github.com/kilianp07/slotplan/core/solver"
	"github.com/kilianp07/slotplan/infra/metrics"
	"github.com/kilianp07/slotplan/internal/eventbus"
)

// RunScenario solves sc with every algorithm it lists, or all of them, and
// checks the expectations and the metrics recorded for each run.
func RunScenario(t *testing.T, sc *Scenario) {
	algorithms := sc.Algorithms
	if len(algorithms) == 0 {
		algorithms = solver.Names()
	}
	for _, algorithm := range algorithms {
		t.Run(algorithm, func(t *testing.T) {
			runOnce(t, sc, algorithm)
		})
	}
}

func runOnce(t *testing.T, sc *Scenario, algorithm string) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	bus := eventbus.New[events.Event](16)
	ctx, cancel := context.WithCancel(context.Background())
	done := metrics.StartEventCollector(ctx, bus, sink)

	eng, err := engine.New(engine.DefaultConfig(), engine.WithBus(bus))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	in := sc.Input
	in.Algorithm = algorithm
	if in.Options == nil {
		in.Options = &engine.Overrides{Seed: 1, MaxIterations: 500}
	}
	res, err := eng.Solve(ctx, in)

	bus.Close()
	<-done
	cancel()

	outcome := "ok"
	if sc.Expected.Error != "" {
		outcome = sc.Expected.Error
	}
	if got := recordedRuns(t, reg, algorithm, outcome); got != 1 {
		t.Errorf("scenario %s expected one %s run recorded, got %v", sc.Name, outcome, got)
	}

	if sc.Expected.Error != "" {
		if code := engine.Code(err); code != sc.Expected.Error {
			t.Fatalf("scenario %s expected error %s, got %v", sc.Name, sc.Expected.Error, err)
		}
		return
	}
	if err != nil {
		t.Fatalf("scenario %s: %v", sc.Name, err)
	}
	checkResult(t, sc, res)
}

func checkResult(t *testing.T, sc *Scenario, res *engine.Result) {
	exp := sc.Expected
	if res.Summary.Scheduled != exp.Scheduled {
		t.Errorf("scenario %s expected %d scheduled, got %d", sc.Name, exp.Scheduled, res.Summary.Scheduled)
	}
	if len(res.Unscheduled) != exp.Unscheduled {
		t.Errorf("scenario %s expected %d unscheduled, got %d", sc.Name, exp.Unscheduled, len(res.Unscheduled))
	}
	if res.Summary.InvalidTasks != exp.Invalid {
		t.Errorf("scenario %s expected %d invalid, got %d", sc.Name, exp.Invalid, res.Summary.InvalidTasks)
	}
	if exp.Rooms != 0 && res.RoomCount != exp.Rooms {
		t.Errorf("scenario %s expected %d rooms, got %d", sc.Name, exp.Rooms, res.RoomCount)
	}
	if n := len(res.Assignment) + len(res.Unscheduled); n != res.Summary.TotalTasks {
		t.Errorf("scenario %s: %d assigned+unscheduled for %d tasks", sc.Name, n, res.Summary.TotalTasks)
	}
	for _, p := range exp.Placements {
		checkPlacement(t, sc.Name, res, p)
	}
}

func checkPlacement(t *testing.T, name string, res *engine.Result, p Placement) {
	for id, b := range res.Assignment {
		if id.String() != p.Task {
			continue
		}
		want, err := time.Parse(time.RFC3339, p.Start)
		if err != nil {
			t.Fatalf("scenario %s: bad start %q: %v", name, p.Start, err)
		}
		if !b.Start.Equal(want) || b.Room != p.Room {
			t.Errorf("scenario %s: %s placed at %s room %d, want %s room %d", name, p.Task, b.Start.Format(time.RFC3339), b.Room, p.Start, p.Room)
		}
		return
	}
	t.Errorf("scenario %s: %s not scheduled", name, p.Task)
}

// recordedRuns reads solve_runs_recorded_total for the given labels.
func recordedRuns(t *testing.T, g prometheus.Gatherer, algorithm, outcome string) float64 {
	families, err := g.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "solve_runs_recorded_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["algorithm"] == algorithm && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
