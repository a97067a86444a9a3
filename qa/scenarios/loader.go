package scenarios

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/slotplan/core/engine"
)

// Placement is an expected booking of one task.
type Placement struct {
	Task  string `yaml:"task"`
	Start string `yaml:"start"`
	Room  int    `yaml:"room"`
}

type Expected struct {
	Scheduled   int         `yaml:"scheduled"`
	Unscheduled int         `yaml:"unscheduled"`
	Invalid     int         `yaml:"invalid"`
	Rooms       int         `yaml:"rooms,omitempty"`
	Placements  []Placement `yaml:"placements,omitempty"`
	// Error is the expected error code; the run must fail when set.
	Error string `yaml:"error,omitempty"`
}

type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Algorithms  []string     `yaml:"algorithms,omitempty"`
	Input       engine.Input `yaml:"input"`
	Expected    Expected     `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
