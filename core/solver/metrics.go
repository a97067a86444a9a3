package solver

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	unscheduled *prometheus.GaugeVec
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.HistogramVec, *prometheus.GaugeVec) {
	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solver_runs_total",
			Help: "Number of solver runs",
		},
		[]string{"algorithm", "timed_out"},
	)
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solver_duration_seconds",
			Help:    "Wall clock duration of solver runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"algorithm"},
	)
	uns := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "solver_unscheduled_tasks",
			Help: "Unscheduled tasks of the last run",
		},
		[]string{"algorithm"},
	)
	return runs, dur, uns
}

func init() {
	runsTotal, runDuration, unscheduled = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers solver metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(runsTotal, runDuration, unscheduled)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	runsTotal, runDuration, unscheduled = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

type instrumented struct {
	Solver
}

// Instrument wraps s so every run is recorded in the solver collectors.
func Instrument(s Solver) Solver {
	if _, ok := s.(instrumented); ok {
		return s
	}
	return instrumented{Solver: s}
}

func (i instrumented) Solve(ctx context.Context, p Problem) (*Result, error) {
	start := time.Now()
	res, err := i.Solver.Solve(ctx, p)
	if err != nil {
		return nil, err
	}
	name := i.Name()
	runsTotal.WithLabelValues(name, strconv.FormatBool(res.Stats.TimedOut)).Inc()
	runDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	unscheduled.WithLabelValues(name).Set(float64(len(res.Unscheduled)))
	return res, nil
}
