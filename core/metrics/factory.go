package metrics

import (
	"errors"
	"fmt"
	"io"

	"github.com/kilianp07/slotplan/core/factory"
)

var sinkRegistry = factory.NewRegistry[MetricsSink]()

// RegisterMetricsSink adds a sink factory under name.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink types.
func SinkTypes() []string { return sinkRegistry.Names() }

// NewSink builds a single sink from its module config.
func NewSink(cfg factory.ModuleConfig) (MetricsSink, error) {
	return sinkRegistry.Create(cfg)
}

// NewMetricsSink builds every configured sink. No config yields a NopSink,
// one config the sink itself and several a MultiSink. Sinks already built
// are closed when a later one fails.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	sinks := make([]MetricsSink, 0, len(cfgs))
	for i, c := range cfgs {
		s, err := NewSink(c)
		if err != nil {
			_ = Close(NewMultiSink(sinks...))
			return nil, fmt.Errorf("sinks[%d]: %w", i, err)
		}
		sinks = append(sinks, s)
	}
	return Combine(sinks...), nil
}

// Combine returns a NopSink, the only sink or a MultiSink.
func Combine(sinks ...MetricsSink) MetricsSink {
	switch len(sinks) {
	case 0:
		return NopSink{}
	case 1:
		return sinks[0]
	default:
		return NewMultiSink(sinks...)
	}
}

// Close releases s and, for a MultiSink, every member implementing
// io.Closer.
func Close(s MetricsSink) error {
	if m, ok := s.(*MultiSink); ok {
		var errs []error
		for _, inner := range m.Sinks {
			errs = append(errs, Close(inner))
		}
		return errors.Join(errs...)
	}
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
