// Package app wires the engine to its sinks, run log and session registry.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/slotplan/config"
	"github.com/kilianp07/slotplan/core/engine"
	"github.com/kilianp07/slotplan/core/events"
	coremetrics "github.com/kilianp07/slotplan/core/metrics"
	"github.com/kilianp07/slotplan/core/model"
	"github.com/kilianp07/slotplan/core/runlog"
	"github.com/kilianp07/slotplan/core/session"
	"github.com/kilianp07/slotplan/infra/logger"
	"github.com/kilianp07/slotplan/infra/metrics"
	"github.com/kilianp07/slotplan/infra/mqtt"
	"github.com/kilianp07/slotplan/internal/eventbus"
)

// ErrSessionArchived is returned when solving into an archived session.
var ErrSessionArchived = errors.New("session is archived")

// Service runs the engine and records every run.
type Service struct {
	Engine   *engine.Engine
	Sessions session.Store

	runs        runlog.Store
	sink        coremetrics.MetricsSink
	bus         *eventbus.Bus[events.Event]
	log         logger.Logger
	metricsAddr string
	gatherer    prometheus.Gatherer

	stop      context.CancelFunc
	collector <-chan struct{}
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	sink, err := newSink(cfg)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	runs, err := runlog.Open(cfg.RunLog)
	if err != nil {
		_ = coremetrics.Close(sink)
		return nil, fmt.Errorf("run log: %w", err)
	}

	bus := eventbus.New[events.Event](0)
	eng, err := engine.New(cfg.Engine,
		engine.WithLogger(logger.New("engine")),
		engine.WithBus(bus),
	)
	if err != nil {
		_ = coremetrics.Close(sink)
		_ = runs.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	svc := &Service{
		Engine:      eng,
		Sessions:    session.NewMemoryStore(),
		runs:        runs,
		sink:        sink,
		bus:         bus,
		log:         logg,
		metricsAddr: cfg.Metrics.PrometheusAddr,
		gatherer:    prometheus.DefaultGatherer,
		stop:        stop,
	}
	svc.collector = metrics.StartEventCollector(ctx, bus, sink)
	return svc, nil
}

// newSink builds the configured sinks. An mqtt sink without its own conf
// uses the top level mqtt section.
func newSink(cfg *config.Config) (coremetrics.MetricsSink, error) {
	var sinks []coremetrics.MetricsSink
	for i, mc := range cfg.Metrics.Sinks {
		var (
			s   coremetrics.MetricsSink
			err error
		)
		if mc.Type == "mqtt" && len(mc.Conf) == 0 {
			s, err = mqtt.NewPublisherFromConfig(cfg.MQTT)
		} else {
			s, err = coremetrics.NewSink(mc)
		}
		if err != nil {
			_ = coremetrics.Close(coremetrics.Combine(sinks...))
			return nil, fmt.Errorf("sinks[%d]: %w", i, err)
		}
		sinks = append(sinks, s)
	}
	return coremetrics.Combine(sinks...), nil
}

// Solve runs the engine and appends the outcome to the run log. A failing
// run log never fails the solve.
func (s *Service) Solve(ctx context.Context, in engine.Input) (*engine.Result, error) {
	if in.RunID == "" {
		in.RunID = uuid.NewString()
	}
	algorithm := in.Algorithm
	if algorithm == "" {
		algorithm = s.Engine.Config().DefaultAlgorithm
	}
	started := time.Now()
	res, err := s.Engine.Solve(ctx, in)
	d := time.Since(started)

	var rec runlog.Record
	if err != nil {
		rec = runlog.FromError(in, in.RunID, algorithm, err, started, d)
	} else {
		rec = runlog.FromResult(in, res, started, d)
	}
	if aerr := s.runs.Append(ctx, rec); aerr != nil {
		s.log.Warnf("run log append %s: %v", in.RunID, aerr)
	}
	return res, err
}

// SolveSession solves in for the session and caches the result. An empty
// planning window uses the session window.
func (s *Service) SolveSession(ctx context.Context, id string, in engine.Input) (*engine.Result, error) {
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Status == model.SessionArchived {
		return nil, ErrSessionArchived
	}
	if in.PlanningWindow == (engine.Window{}) {
		in.PlanningWindow = sess.Window
	}
	res, err := s.Solve(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.RecordResult(id, res); err != nil {
		return nil, err
	}
	return res, nil
}

// ResolveRange solves in, usually a narrower week range of the session, and
// merges its placements into the cached session result.
func (s *Service) ResolveRange(ctx context.Context, id string, in engine.Input) (*engine.Result, error) {
	sess, err := s.Sessions.Get(id)
	if err != nil {
		return nil, err
	}
	if sess.Status == model.SessionArchived {
		return nil, ErrSessionArchived
	}
	if sess.Result == nil {
		return nil, fmt.Errorf("session %s has no result to merge into", id)
	}
	res, err := s.Solve(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.MergeAssignment(id, res.Assignment); err != nil {
		return nil, err
	}
	return res, nil
}

// History queries the run log.
func (s *Service) History(ctx context.Context, q runlog.Query) ([]runlog.Record, error) {
	return s.runs.Query(ctx, q)
}

// ServeMetrics exposes /metrics until ctx is canceled.
func (s *Service) ServeMetrics(ctx context.Context) error {
	s.log.Infof("serving metrics on %s", s.metricsAddr)
	return metrics.StartPromServer(ctx, s.metricsAddr, s.gatherer)
}

// Close drains pending events and releases the sinks and the run log.
func (s *Service) Close() error {
	s.bus.Close()
	<-s.collector
	s.stop()
	return errors.Join(coremetrics.Close(s.sink), s.runs.Close())
}
