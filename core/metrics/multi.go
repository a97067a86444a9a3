package metrics

import "errors"

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordSolve forwards the record to every sink. All sinks are tried; the
// errors are joined.
func (m *MultiSink) RecordSolve(rec SolveRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordSolve(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordStrategy forwards to the sinks that support it.
func (m *MultiSink) RecordStrategy(rec StrategyRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(StrategyRecorder); ok {
			if err := r.RecordStrategy(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordConflict forwards to the sinks that support it.
func (m *MultiSink) RecordConflict(rec ConflictRecord) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(ConflictRecorder); ok {
			if err := r.RecordConflict(rec); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
