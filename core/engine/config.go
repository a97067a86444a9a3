package engine

import (
	"fmt"
	"time"

	"github.com/kilianp07/slotplan/core/slots"
	"github.com/kilianp07/slotplan/core/solver"
)

// Config defines engine settings.
type Config struct {
	// WorkStart and WorkEnd bound the daily slot band, "HH:MM".
	WorkStart string `json:"work_start"`
	WorkEnd   string `json:"work_end"`
	// Location is the IANA zone dates of the planning window are read in.
	Location            string  `json:"location"`
	DefaultAlgorithm    string  `json:"default_algorithm"`
	DefaultRooms        int     `json:"default_rooms"`
	TimeBudgetSeconds   int     `json:"time_budget_seconds"`
	DomainBudgetSeconds int     `json:"domain_budget_seconds"`
	MaxBacktracks       int     `json:"max_backtracks"`
	MinConflictIters    int     `json:"min_conflict_iterations"`
	AnnealingIters      int     `json:"annealing_iterations"`
	InitialTemperature  float64 `json:"initial_temperature"`
	CoolingRate         float64 `json:"cooling_rate"`
	MinTemperature      float64 `json:"min_temperature"`
	Seed                int64   `json:"seed"`
}

// DefaultConfig returns a config with every default applied.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	d := solver.DefaultOptions()
	if c.WorkStart == "" {
		c.WorkStart = "09:00"
	}
	if c.WorkEnd == "" {
		c.WorkEnd = "17:00"
	}
	if c.Location == "" {
		c.Location = "UTC"
	}
	if c.DefaultAlgorithm == "" {
		c.DefaultAlgorithm = solver.Greedy
	}
	if c.DefaultRooms == 0 {
		c.DefaultRooms = 1
	}
	if c.TimeBudgetSeconds == 0 {
		c.TimeBudgetSeconds = int(d.TimeBudget / time.Second)
	}
	if c.DomainBudgetSeconds == 0 {
		c.DomainBudgetSeconds = 10
	}
	if c.MaxBacktracks == 0 {
		c.MaxBacktracks = d.MaxBacktracks
	}
	if c.MinConflictIters == 0 {
		c.MinConflictIters = d.MinConflictIterations
	}
	if c.AnnealingIters == 0 {
		c.AnnealingIters = d.AnnealingIterations
	}
	if c.InitialTemperature == 0 {
		c.InitialTemperature = d.InitialTemperature
	}
	if c.CoolingRate == 0 {
		c.CoolingRate = d.CoolingRate
	}
	if c.MinTemperature == 0 {
		c.MinTemperature = d.MinTemperature
	}
}

// Validate checks the settings are usable.
func (c Config) Validate() error {
	if _, err := c.Hours(); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.Location); err != nil {
		return fmt.Errorf("engine.location: %w", err)
	}
	if c.DefaultRooms < 1 {
		return fmt.Errorf("engine.default_rooms must be at least 1")
	}
	if c.TimeBudgetSeconds < 0 || c.DomainBudgetSeconds < 0 {
		return fmt.Errorf("engine budgets must not be negative")
	}
	if c.CoolingRate <= 0 || c.CoolingRate >= 1 {
		return fmt.Errorf("engine.cooling_rate must be in (0,1), got %v", c.CoolingRate)
	}
	return nil
}

// Hours parses the working band.
func (c Config) Hours() (slots.Hours, error) {
	start, err := minuteOfDay(c.WorkStart)
	if err != nil {
		return slots.Hours{}, fmt.Errorf("engine.work_start: %w", err)
	}
	end, err := minuteOfDay(c.WorkEnd)
	if err != nil {
		return slots.Hours{}, fmt.Errorf("engine.work_end: %w", err)
	}
	h := slots.Hours{Start: start, End: end}
	return h, h.Validate()
}

func minuteOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// SolverOptions maps the config onto solver options.
func (c Config) SolverOptions() solver.Options {
	return solver.Options{
		TimeBudget:            time.Duration(c.TimeBudgetSeconds) * time.Second,
		MaxBacktracks:         c.MaxBacktracks,
		MinConflictIterations: c.MinConflictIters,
		AnnealingIterations:   c.AnnealingIters,
		InitialTemperature:    c.InitialTemperature,
		CoolingRate:           c.CoolingRate,
		MinTemperature:        c.MinTemperature,
		Seed:                  c.Seed,
	}
}
