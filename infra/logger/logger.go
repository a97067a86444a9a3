// Package logger adapts rs/zerolog to the core logger interface.
package logger

import corelogger "github.com/kilianp07/slotplan/core/logger"

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger = corelogger.NopLogger

// New returns a Logger for the given component, writing to the output set by
// Configure.
func New(component string) Logger {
	return NewZerologLogger(component)
}
