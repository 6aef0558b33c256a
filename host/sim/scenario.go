// Package sim runs several robots' real coordination code against a
// simulated optical medium and a simple differential-drive model.
package sim

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"swarmbot/config"
)

// Scenario defaults.
const (
	DefaultTicks       = 60000
	DefaultArenaWidth  = 100.0
	DefaultArenaHeight = 100.0
)

var (
	ErrNoRobots     = errors.New("sim: scenario has no robots")
	ErrDuplicateID  = errors.New("sim: duplicate robot id")
	ErrOutsideArena = errors.New("sim: robot placed outside the arena")
)

// Arena is the rectangular floor the robots drive on, in centimetres.
type Arena struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// RobotSpec places one robot. Its configuration keys sit next to the
// placement keys, exactly as in robot.json.
type RobotSpec struct {
	config.RobotConfig `yaml:",inline"`

	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	// Heading in degrees, counter-clockwise from the +x axis.
	Heading float64 `yaml:"heading"`
}

// Scenario is a simulation run description.
type Scenario struct {
	Name   string      `yaml:"name"`
	Ticks  uint32      `yaml:"ticks"`
	Seed   uint32      `yaml:"seed"`
	Arena  Arena       `yaml:"arena"`
	Robots []RobotSpec `yaml:"robots"`
}

// LoadScenario parses a YAML scenario, fills in defaults and validates every
// robot configuration.
func LoadScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Normalize(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Normalize fills in defaults and validates the scenario.
func (sc *Scenario) Normalize() error {
	if sc.Name == "" {
		sc.Name = "scenario"
	}
	if sc.Ticks == 0 {
		sc.Ticks = DefaultTicks
	}
	if sc.Arena.Width <= 0 {
		sc.Arena.Width = DefaultArenaWidth
	}
	if sc.Arena.Height <= 0 {
		sc.Arena.Height = DefaultArenaHeight
	}
	if len(sc.Robots) == 0 {
		return ErrNoRobots
	}

	seen := make(map[uint8]bool, len(sc.Robots))
	for i := range sc.Robots {
		r := &sc.Robots[i]
		if err := r.RobotConfig.Normalize(); err != nil {
			return fmt.Errorf("robot %d: %w", i, err)
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = true

		if r.X < RobotRadius || r.X > sc.Arena.Width-RobotRadius ||
			r.Y < RobotRadius || r.Y > sc.Arena.Height-RobotRadius {
			return fmt.Errorf("%w: robot %d at (%.1f, %.1f)", ErrOutsideArena, r.ID, r.X, r.Y)
		}
	}
	return nil
}
