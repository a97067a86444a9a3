package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/slotplan/core/conflict"
	"github.com/kilianp07/slotplan/core/domain"
	"github.com/kilianp07/slotplan/core/events"
	"github.com/kilianp07/slotplan/core/logger"
	"github.com/kilianp07/slotplan/core/model"
	"github.com/kilianp07/slotplan/core/monitoring"
	"github.com/kilianp07/slotplan/core/slots"
	"github.com/kilianp07/slotplan/core/solver"
	"github.com/kilianp07/slotplan/core/tasks"
	"github.com/kilianp07/slotplan/internal/eventbus"
)

// Engine solves inputs. It holds no per-run state and may be shared by
// concurrent callers.
type Engine struct {
	cfg   Config
	hours slots.Hours
	loc   *time.Location

	log      logger.Logger
	bus      eventbus.EventBus[events.Event]
	resolver *conflict.Resolver
	now      func() time.Time
	newID    func() string
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.log = logger.OrNop(l) } }

// WithBus publishes run events on bus.
func WithBus(bus eventbus.EventBus[events.Event]) Option { return func(e *Engine) { e.bus = bus } }

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithIDGenerator replaces the run id generator.
func WithIDGenerator(f func() string) Option { return func(e *Engine) { e.newID = f } }

// New validates cfg and returns an engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	hours, err := cfg.Hours()
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:   cfg,
		hours: hours,
		loc:   loc,
		log:   logger.NopLogger{},
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	e.resolver = conflict.NewResolver(e.log)
	return e, nil
}

// Config returns the effective engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Algorithms lists the available strategies.
func (e *Engine) Algorithms() []string { return solver.Names() }

// prepared is the solver independent part of a run.
type prepared struct {
	window Window
	grid   *slots.Grid
	tasks  []model.Task
	doms   domain.Set
	diags  []domain.Diagnostic
}

// Solve runs in end to end. The returned error is always an *Error.
func (e *Engine) Solve(ctx context.Context, in Input) (*Result, error) {
	runID := in.RunID
	if runID == "" {
		runID = e.newID()
	}
	started := e.now()
	algorithm := in.Algorithm
	if algorithm == "" {
		algorithm = e.cfg.DefaultAlgorithm
	}

	res, err := e.safeSolve(ctx, runID, algorithm, in)
	if err != nil {
		typed := FromError(err)
		e.log.Errorf("run %s failed: %v", runID, typed)
		if typed.Code != CodeInvalidInput && typed.Code != CodeUnknownAlgorithm {
			monitoring.CaptureException(typed, map[string]string{"run_id": runID, "algorithm": algorithm, "code": typed.Code})
		}
		e.publish(events.SolveEvent{RunID: runID, Algorithm: algorithm, ErrorCode: typed.Code, Duration: e.now().Sub(started), Time: started})
		return nil, typed
	}

	e.publish(events.SolveEvent{
		RunID:       runID,
		Algorithm:   algorithm,
		Rooms:       res.RoomCount,
		Tasks:       res.Summary.TotalTasks,
		Scheduled:   res.Summary.Scheduled,
		Unscheduled: res.Summary.Unscheduled,
		Invalid:     res.Summary.InvalidTasks,
		Conflicts:   len(res.Conflicts),
		Stats:       res.Stats,
		Duration:    e.now().Sub(started),
		Time:        started,
	})
	e.log.Infof("run %s: %s scheduled %d/%d tasks in %d room(s)", runID, algorithm, res.Summary.Scheduled, res.Summary.TotalTasks, res.RoomCount)
	return res, nil
}

// safeSolve turns a panic of a strategy into an internal error.
func (e *Engine) safeSolve(ctx context.Context, runID, algorithm string, in Input) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, Wrap(ErrInternal, fmt.Errorf("panic: %v", r))
		}
	}()
	return e.solve(ctx, runID, algorithm, in)
}

func (e *Engine) solve(ctx context.Context, runID, algorithm string, in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !known(algorithm) {
		return nil, Wrap(ErrUnknownAlgorithm, fmt.Errorf("%q, available: %v", algorithm, solver.Names()))
	}
	p, err := e.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	opts := e.options(in.Options)
	rooms := in.RoomCount
	if rooms.IsZero() {
		rooms = Rooms(e.cfg.DefaultRooms)
	}

	var out *attempt
	if rooms.Auto {
		out, err = e.auto(ctx, runID, algorithm, opts, p)
	} else {
		out, err = e.attempt(ctx, algorithm, opts, p, rooms.N)
	}
	if err != nil {
		return nil, Wrap(ErrInternal, err)
	}
	for _, ev := range out.conflictEvents(runID, algorithm) {
		e.publish(ev)
	}

	return &Result{
		RunID:       runID,
		Algorithm:   algorithm,
		RoomCount:   out.rooms,
		Window:      p.window,
		Assignment:  bookings(out.assignment, p.tasks),
		Unscheduled: out.unscheduled,
		Diagnostics: p.diags,
		Stats:       out.stats,
		Conflicts:   out.conflicts,
		Resolutions: out.proposals,
		Summary:     summarize(p.grid, p.tasks, p.doms, p.diags, out.assignment),
	}, nil
}

func known(algorithm string) bool {
	for _, n := range solver.Names() {
		if n == algorithm {
			return true
		}
	}
	return false
}

func (e *Engine) prepare(ctx context.Context, in Input) (*prepared, error) {
	start, end, err := in.PlanningWindow.Parse(e.loc)
	if err != nil {
		return nil, Wrap(ErrInvalidInput, err)
	}
	if end.Before(start) {
		return nil, Wrap(ErrNoWorkableDays, fmt.Errorf("end date %s is before start date %s", in.PlanningWindow.EndDate, in.PlanningWindow.StartDate))
	}
	start, end = slots.AlignToWeeks(start, end)
	grid := slots.Build(start, end, e.hours)
	if grid.Len() == 0 {
		return nil, ErrNoWorkableDays
	}
	e.log.Debugf("grid: %d slots over %d week(s)", grid.Len(), len(grid.Weeks()))

	groups := model.RankGroups(in.Groups, in.Priority)
	ts, err := tasks.Generate(groups, grid.Weeks())
	if err != nil {
		return nil, Wrap(ErrInvalidInput, err)
	}
	e.log.Debugf("generated %d tasks for %d group(s)", len(ts), len(groups))

	calc := &domain.Calculator{
		Grid:         grid,
		Constraints:  in.GroupConstraints,
		Individual:   in.IndividualConstraints,
		EnabledWeeks: in.WeeklyEnabledWeeks,
		Timeout:      time.Duration(e.cfg.DomainBudgetSeconds) * time.Second,
		Now:          e.now,
		Log:          e.log,
	}
	doms, diags, err := calc.Compute(ctx, ts)
	if err != nil {
		if errors.Is(err, domain.ErrTimeout) {
			return nil, Wrap(ErrDomainTimeout, err)
		}
		return nil, Wrap(ErrInternal, err)
	}
	invalid := 0
	for _, d := range diags {
		if d.Status == domain.StatusInvalid {
			invalid++
		}
	}
	if invalid > 0 {
		e.log.Warnf("%d task(s) have an empty domain and cannot be scheduled", invalid)
	}
	return &prepared{
		window: Window{StartDate: start.Format(DateLayout), EndDate: end.Format(DateLayout)},
		grid:   grid,
		tasks:  ts,
		doms:   doms,
		diags:  diags,
	}, nil
}

func (e *Engine) options(o *Overrides) solver.Options {
	opts := e.cfg.SolverOptions()
	if o == nil {
		return opts
	}
	if o.TimeBudgetSeconds > 0 {
		opts.TimeBudget = time.Duration(o.TimeBudgetSeconds) * time.Second
	}
	if o.MaxBacktracks > 0 {
		opts.MaxBacktracks = o.MaxBacktracks
	}
	if o.MaxIterations > 0 {
		opts.MinConflictIterations = o.MaxIterations
		opts.AnnealingIterations = o.MaxIterations
	}
	if o.Seed != 0 {
		opts.Seed = o.Seed
	}
	return opts
}

func (e *Engine) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
