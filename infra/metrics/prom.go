package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/slotplan/core/metrics"
)

// PromSink records engine runs in Prometheus metrics.
type PromSink struct {
	runs      *prometheus.CounterVec
	tasks     *prometheus.CounterVec
	conflicts *prometheus.CounterVec
	strategy  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	rooms     *prometheus.GaugeVec
}

var (
	_ coremetrics.StrategyRecorder = (*PromSink)(nil)
	_ coremetrics.ConflictRecorder = (*PromSink)(nil)
)

// NewPromSink registers run metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solve_runs_recorded_total",
			Help: "Engine runs by outcome, ok or the error code",
		}, []string{"algorithm", "outcome"}),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solve_tasks_total",
			Help: "Tasks seen by the engine by final state",
		}, []string{"algorithm", "state"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solve_conflicts_total",
			Help: "Double bookings detected after search",
		}, []string{"algorithm", "type"}),
		strategy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solve_room_attempts_total",
			Help: "Auto room mode attempts",
		}, []string{"action", "rooms"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solve_run_duration_seconds",
			Help:    "End to end duration of engine runs",
			Buckets: prometheus.DefBuckets,
		}, []string{"algorithm"}),
		rooms: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solve_rooms",
			Help: "Room count used by the last run",
		}, []string{"algorithm"}),
	}
	var err error
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	if s.tasks, err = register(reg, s.tasks); err != nil {
		return nil, err
	}
	if s.conflicts, err = register(reg, s.conflicts); err != nil {
		return nil, err
	}
	if s.strategy, err = register(reg, s.strategy); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.rooms, err = register(reg, s.rooms); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSolve updates the run, task and duration metrics.
func (s *PromSink) RecordSolve(rec coremetrics.SolveRecord) error {
	outcome := "ok"
	if rec.Failed() {
		outcome = rec.ErrorCode
	}
	s.runs.WithLabelValues(rec.Algorithm, outcome).Inc()
	s.duration.WithLabelValues(rec.Algorithm).Observe(rec.Duration.Seconds())
	if rec.Failed() {
		return nil
	}
	s.tasks.WithLabelValues(rec.Algorithm, "scheduled").Add(float64(rec.Scheduled))
	s.tasks.WithLabelValues(rec.Algorithm, "unscheduled").Add(float64(rec.Unscheduled))
	s.tasks.WithLabelValues(rec.Algorithm, "invalid").Add(float64(rec.Invalid))
	s.rooms.WithLabelValues(rec.Algorithm).Set(float64(rec.Rooms))
	return nil
}

// RecordStrategy counts auto room attempts.
func (s *PromSink) RecordStrategy(rec coremetrics.StrategyRecord) error {
	s.strategy.WithLabelValues(rec.Action, strconv.Itoa(rec.Rooms)).Inc()
	return nil
}

// RecordConflict counts detected conflicts by type.
func (s *PromSink) RecordConflict(rec coremetrics.ConflictRecord) error {
	s.conflicts.WithLabelValues(rec.Algorithm, string(rec.Conflict.Type)).Inc()
	return nil
}
