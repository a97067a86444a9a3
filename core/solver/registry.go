package solver

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/slotplan/core/logger"
)

// Builder constructs a strategy from options.
type Builder func(opts Options, log logger.Logger) Solver

var (
	mu       sync.RWMutex
	builders = map[string]Builder{}
)

func init() {
	for name, b := range map[string]Builder{
		Greedy:             func(_ Options, l logger.Logger) Solver { return NewGreedy(l) },
		CSPBacktrack:       func(o Options, l logger.Logger) Solver { return NewBacktrack(o, l) },
		MinConflict:        func(o Options, l logger.Logger) Solver { return NewMinConflict(o, l) },
		SimulatedAnnealing: func(o Options, l logger.Logger) Solver { return NewAnnealing(o, l) },
	} {
		if err := Register(name, b); err != nil {
			panic(err)
		}
	}
}

// Register makes a strategy available under name.
func Register(name string, b Builder) error {
	if b == nil {
		return fmt.Errorf("solver builder nil for %s", name)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, ok := builders[name]; ok {
		return fmt.Errorf("solver already registered for %s", name)
	}
	builders[name] = b
	return nil
}

// New returns the instrumented strategy registered under name.
func New(name string, opts Options, log logger.Logger) (Solver, error) {
	mu.RLock()
	b, ok := builders[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown algorithm %s", name)
	}
	return Instrument(b(opts, log)), nil
}

// Names lists the registered strategies alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(builders))
	for n := range builders {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
