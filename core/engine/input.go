package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/slotplan/core/model"
)

// DateLayout is the format of planning window dates.
const DateLayout = "2006-01-02"

// Window is the planning horizon, both dates inclusive.
type Window struct {
	StartDate string `json:"start_date" yaml:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" yaml:"end_date" validate:"required,datetime=2006-01-02"`
}

// Parse returns the window bounds at midnight in loc.
func (w Window) Parse(loc *time.Location) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DateLayout, w.StartDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := time.ParseInLocation(DateLayout, w.EndDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date: %w", err)
	}
	return start, end, nil
}

// RoomCount is a fixed number of rooms or the auto mode.
type RoomCount struct {
	N    int
	Auto bool
}

// AutoRooms selects the auto mode.
var AutoRooms = RoomCount{Auto: true}

// Rooms returns a fixed room count.
func Rooms(n int) RoomCount { return RoomCount{N: n} }

// IsZero reports whether the count was left unset.
func (r RoomCount) IsZero() bool { return !r.Auto && r.N == 0 }

func (r RoomCount) String() string {
	if r.Auto {
		return "auto"
	}
	return strconv.Itoa(r.N)
}

// MarshalJSON encodes "auto" or the number.
func (r RoomCount) MarshalJSON() ([]byte, error) {
	if r.Auto {
		return json.Marshal("auto")
	}
	return json.Marshal(r.N)
}

// UnmarshalJSON accepts a number, a numeric string or "auto".
func (r *RoomCount) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	return r.set(raw)
}

// UnmarshalYAML accepts a number, a numeric string or "auto".
func (r *RoomCount) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return r.set(raw)
}

// ParseRoomCount parses the textual form used on the command line.
func ParseRoomCount(s string) (RoomCount, error) {
	var r RoomCount
	err := r.set(s)
	return r, err
}

func (r *RoomCount) set(raw any) error {
	switch v := raw.(type) {
	case nil:
		*r = RoomCount{}
		return nil
	case float64:
		if v != float64(int(v)) {
			return fmt.Errorf("room count must be an integer, got %v", v)
		}
		*r = RoomCount{N: int(v)}
	case int:
		*r = RoomCount{N: v}
	case string:
		if strings.EqualFold(v, "auto") {
			*r = AutoRooms
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("room count must be a number or \"auto\", got %q", v)
		}
		*r = RoomCount{N: n}
	default:
		return fmt.Errorf("unsupported room count %v", raw)
	}
	if r.N < 1 {
		return fmt.Errorf("room count must be at least 1, got %d", r.N)
	}
	return nil
}

// Overrides tune a single run on top of the engine config.
type Overrides struct {
	TimeBudgetSeconds int   `json:"time_budget_seconds,omitempty" yaml:"time_budget_seconds,omitempty" validate:"gte=0"`
	MaxBacktracks     int   `json:"max_backtracks,omitempty" yaml:"max_backtracks,omitempty" validate:"gte=0"`
	MaxIterations     int   `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty" validate:"gte=0"`
	Seed              int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Input is everything one solve needs.
type Input struct {
	Groups                []model.Group               `json:"groups" yaml:"groups" validate:"required,min=1,dive"`
	GroupConstraints      []model.GroupConstraint     `json:"group_constraints,omitempty" yaml:"group_constraints,omitempty" validate:"dive"`
	IndividualConstraints model.IndividualConstraints `json:"individual_constraints,omitempty" yaml:"individual_constraints,omitempty"`
	// WeeklyEnabledWeeks lists, per monthly group, the period weeks its task
	// may land in.
	WeeklyEnabledWeeks map[string][]int `json:"weekly_enabled_weeks,omitempty" yaml:"weekly_enabled_weeks,omitempty"`
	// Priority orders group ids, most important first.
	Priority       []string   `json:"priority,omitempty" yaml:"priority,omitempty"`
	PlanningWindow Window     `json:"planning_window" yaml:"planning_window"`
	RoomCount      RoomCount  `json:"room_count" yaml:"room_count"`
	Algorithm      string     `json:"algorithm,omitempty" yaml:"algorithm,omitempty"`
	Options        *Overrides `json:"options,omitempty" yaml:"options,omitempty"`
	// RunID is generated when empty.
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

var validate = validator.New()

// Validate checks the input before any computation.
func (in Input) Validate() error {
	if err := validate.Struct(in); err != nil {
		return Wrap(ErrInvalidInput, err)
	}
	ids := make(map[string]bool, len(in.Groups))
	for _, g := range in.Groups {
		if err := g.Validate(); err != nil {
			return Wrap(ErrInvalidInput, err)
		}
		if ids[g.ID] {
			return Wrap(ErrInvalidInput, fmt.Errorf("duplicate group id %s", g.ID))
		}
		ids[g.ID] = true
	}
	for _, c := range in.GroupConstraints {
		if err := c.Validate(); err != nil {
			return Wrap(ErrInvalidInput, err)
		}
		if !ids[c.Group] {
			return Wrap(ErrInvalidInput, fmt.Errorf("constraint references unknown group %s", c.Group))
		}
	}
	for person, ranges := range in.IndividualConstraints {
		for _, r := range ranges {
			if r.End <= r.Start {
				return Wrap(ErrInvalidInput, fmt.Errorf("availability of %s: end must be after start", person))
			}
		}
	}
	for group, weeks := range in.WeeklyEnabledWeeks {
		for _, w := range weeks {
			if w < 1 {
				return Wrap(ErrInvalidInput, fmt.Errorf("enabled weeks of %s: week %d must be positive", group, w))
			}
		}
	}
	return nil
}

// LoadInput reads an input file, YAML or JSON by extension.
func LoadInput(path string) (Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return Input{}, err
	}
	defer f.Close()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return DecodeInput(f, ext)
}

// DecodeInput parses an input from r in the given format.
func DecodeInput(r io.Reader, format string) (Input, error) {
	var in Input
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&in); err != nil {
			return Input{}, Wrap(ErrInvalidInput, err)
		}
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return Input{}, Wrap(ErrInvalidInput, err)
		}
	default:
		return Input{}, Wrap(ErrInvalidInput, fmt.Errorf("unsupported input format: %s", format))
	}
	return in, nil
}
