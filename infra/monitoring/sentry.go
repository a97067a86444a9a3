// Package monitoring reports engine failures to Sentry.
package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/slotplan/config"
	coremon "github.com/kilianp07/slotplan/core/monitoring"
)

// NewSentryMonitor initializes Sentry using the provided configuration and
// returns a Monitor implementation. An empty DSN yields a NopMonitor.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
	})
	if err != nil {
		return nil, err
	}
	return &sentryMonitor{hub: sentry.CurrentHub()}, nil
}

// Setup installs the monitor described by cfg as the process monitor and
// returns a function flushing pending events.
func Setup(cfg config.SentryConfig) (func(), error) {
	cfg.SetDefaults()
	m, err := NewSentryMonitor(cfg)
	if err != nil {
		return nil, err
	}
	coremon.Init(m)
	timeout := time.Duration(cfg.FlushSeconds) * time.Second
	return func() { m.Flush(timeout) }, nil
}

type sentryMonitor struct {
	hub *sentry.Hub
}

// CaptureException sends err with tags. Run ids and error codes passed as
// tags become searchable in Sentry.
func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("service", "slotplan")
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		s.hub.CaptureException(err)
	})
}

// CapturePanic sends a recovered panic value with tags.
func (s *sentryMonitor) CapturePanic(v any, tags map[string]string) {
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("service", "slotplan")
		for k, val := range tags {
			scope.SetTag(k, val)
		}
		s.hub.Recover(v)
	})
}

func (s *sentryMonitor) Flush(timeout time.Duration) { s.hub.Flush(timeout) }
