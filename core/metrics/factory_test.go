package metrics_test

import (
	"errors"
	"testing"

	"github.com/kilianp07/slotplan/core/factory"
	metrics "github.com/kilianp07/slotplan/core/metrics"
)

type countingSink struct {
	solves, strategies, conflicts int
	err                           error
}

func (c *countingSink) RecordSolve(metrics.SolveRecord) error { c.solves++; return c.err }
func (c *countingSink) RecordStrategy(metrics.StrategyRecord) error {
	c.strategies++
	return c.err
}

type solveOnly struct{ n int }

func (s *solveOnly) RecordSolve(metrics.SolveRecord) error { s.n++; return nil }

type closingSink struct {
	metrics.NopSink
	closed *int
}

func (c closingSink) Close() error { *c.closed++; return nil }

var closed int

func init() {
	_ = metrics.RegisterMetricsSink("test-nop", func(map[string]any) (metrics.MetricsSink, error) {
		return metrics.NopSink{}, nil
	})
	_ = metrics.RegisterMetricsSink("test-closer", func(map[string]any) (metrics.MetricsSink, error) {
		return closingSink{closed: &closed}, nil
	})
}

// NewMetricsSink returns a NopSink without config, the sink itself for one
// config and a MultiSink for several.
func TestNewMetricsSink(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	if _, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "test-nop"}, {Type: "test-nop"}})
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}
}

func TestMultiSinkFanOut(t *testing.T) {
	a := &countingSink{}
	b := &solveOnly{}
	m := metrics.NewMultiSink(a, b)

	if err := m.RecordSolve(metrics.SolveRecord{RunID: "r"}); err != nil {
		t.Fatalf("record solve: %v", err)
	}
	if err := m.RecordStrategy(metrics.StrategyRecord{RunID: "r"}); err != nil {
		t.Fatalf("record strategy: %v", err)
	}
	if err := m.RecordConflict(metrics.ConflictRecord{RunID: "r"}); err != nil {
		t.Fatalf("record conflict: %v", err)
	}
	if a.solves != 1 || a.strategies != 1 || b.n != 1 {
		t.Fatalf("unexpected counts: %+v %d", a, b.n)
	}
}

func TestMultiSinkKeepsGoingOnError(t *testing.T) {
	boom := errors.New("boom")
	a := &countingSink{err: boom}
	b := &solveOnly{}
	err := metrics.NewMultiSink(a, b).RecordSolve(metrics.SolveRecord{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if b.n != 1 {
		t.Fatalf("second sink not called")
	}
}

func TestConfigValidate(t *testing.T) {
	c := metrics.Config{Sinks: []factory.ModuleConfig{{Conf: map[string]any{}}}}
	if err := c.Validate(); err == nil {
		t.Fatal("expected missing type error")
	}
	c.SetDefaults()
	if c.PrometheusAddr != ":9090" {
		t.Fatalf("unexpected default addr %q", c.PrometheusAddr)
	}
}

func TestNewMetricsSinkClosesOnFailure(t *testing.T) {
	closed = 0
	_, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "test-closer"}, {Type: "test-closer"}, {Type: "missing"}})
	if !errors.Is(err, factory.ErrUnknownType) {
		t.Fatalf("expected unknown type error, got %v", err)
	}
	if closed != 2 {
		t.Fatalf("expected 2 sinks closed, got %d", closed)
	}
}

func TestCloseMultiSink(t *testing.T) {
	closed = 0
	s := metrics.Combine(closingSink{closed: &closed}, metrics.NopSink{}, closingSink{closed: &closed})
	if err := metrics.Close(s); err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed != 2 {
		t.Fatalf("expected 2 sinks closed, got %d", closed)
	}
	if _, ok := metrics.Combine().(metrics.NopSink); !ok {
		t.Fatal("expected NopSink for no sinks")
	}
}
