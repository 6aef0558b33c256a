// Package config holds the static configuration of one robot: identity,
// behaviour mode, collision policy, servo calibration and channel wiring.
package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"swarmbot/coop"
	"swarmbot/core"
	"swarmbot/protocol"
	"swarmbot/swarm"
)

// MaxRobotID keeps chain-follow ids below the reserved message values.
const MaxRobotID = 10

var (
	ErrInvalidID       = errors.New("config: robot id out of range")
	ErrInvalidMode     = errors.New("config: unknown mode")
	ErrInvalidCommand  = errors.New("config: command must be 0..3")
	ErrInvalidPolicy   = errors.New("config: unknown collision policy")
	ErrInvalidSensors  = errors.New("config: bad sensor channel map")
	ErrChainNeedsHead  = errors.New("config: follow_chain needs fixed_leader")
	ErrInvalidBackoff  = errors.New("config: backoff range is empty")
	ErrInvalidDistance = errors.New("config: bad distance channels")
)

// BackoffConfig is the randomized backoff range in message cycles.
type BackoffConfig struct {
	MinCycles    uint32 `json:"min_cycles" yaml:"min_cycles"`
	JitterCycles uint32 `json:"jitter_cycles" yaml:"jitter_cycles"`
}

// PinConfig is the board wiring. Zero values are replaced by the defaults.
type PinConfig struct {
	SignalEmitters  []uint32 `json:"signal_emitters" yaml:"signal_emitters"`
	DistanceEmitter uint32   `json:"distance_emitter" yaml:"distance_emitter"`
	ServoLeft       uint32   `json:"servo_left" yaml:"servo_left"`
	ServoRight      uint32   `json:"servo_right" yaml:"servo_right"`
	ADCChipSelect   uint32   `json:"adc_cs" yaml:"adc_cs"`
}

// RobotConfig is the configuration of one robot.
type RobotConfig struct {
	ID              uint8             `json:"id" yaml:"id"`
	Mode            string            `json:"mode" yaml:"mode"`
	FixedLeader     bool              `json:"fixed_leader" yaml:"fixed_leader"`
	Command         int               `json:"command" yaml:"command"`
	CollisionPolicy string            `json:"collision_policy" yaml:"collision_policy"`
	Backoff         BackoffConfig     `json:"backoff" yaml:"backoff"`
	Calibration     *core.Calibration `json:"calibration,omitempty" yaml:"calibration,omitempty"`

	// Sensors maps each position name to its ADC channel.
	Sensors map[string]uint8 `json:"sensors" yaml:"sensors"`

	// Distance lists the left and right distance ADC channels.
	Distance []uint8 `json:"distance" yaml:"distance"`

	Pins PinConfig `json:"pins" yaml:"pins"`
	Seed uint32    `json:"seed" yaml:"seed"`
}

// LoadConfig parses a JSON configuration, fills in defaults and validates
// the result.
func LoadConfig(jsonData []byte) (*RobotConfig, error) {
	var config RobotConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Normalize fills in defaults and validates a configuration that was built
// or decoded elsewhere.
func (c *RobotConfig) Normalize() error {
	applyDefaults(c)
	return c.Validate()
}

// applyDefaults fills in missing configuration values
func applyDefaults(config *RobotConfig) {
	if config.Mode == "" {
		config.Mode = swarm.ModeSwarm.String()
	}
	if config.CollisionPolicy == "" {
		config.CollisionPolicy = protocol.CollisionAbort.String()
	}

	if config.Backoff.MinCycles == 0 && config.Backoff.JitterCycles == 0 {
		config.Backoff.MinCycles = protocol.DefaultBackoffMinCycles
		config.Backoff.JitterCycles = protocol.DefaultBackoffJitterCycles
	}

	if config.Calibration == nil {
		cal := CalibrationFor(config.ID)
		config.Calibration = &cal
	}

	if len(config.Sensors) == 0 {
		config.Sensors = make(map[string]uint8, coop.PositionCount)
		for p := coop.Position(0); p < coop.PositionCount; p++ {
			config.Sensors[p.String()] = uint8(p)
		}
	}
	if len(config.Distance) == 0 {
		config.Distance = []uint8{6, 7}
	}

	// Default board wiring
	if len(config.Pins.SignalEmitters) == 0 {
		config.Pins.SignalEmitters = []uint32{2, 3}
	}
	if config.Pins.DistanceEmitter == 0 {
		config.Pins.DistanceEmitter = 4
	}
	if config.Pins.ServoLeft == 0 {
		config.Pins.ServoLeft = 8
	}
	if config.Pins.ServoRight == 0 {
		config.Pins.ServoRight = 9
	}
	if config.Pins.ADCChipSelect == 0 {
		config.Pins.ADCChipSelect = 17
	}

	if config.Seed == 0 {
		config.Seed = uint32(config.ID)*2654435761 + 1
	}
}

// Validate checks a configuration with defaults applied.
func (c *RobotConfig) Validate() error {
	if c.ID == 0 || c.ID > MaxRobotID {
		return fmt.Errorf("%w: %d", ErrInvalidID, c.ID)
	}
	mode, ok := swarm.ParseMode(c.Mode)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}
	if mode == swarm.ModeFollowChain && !c.FixedLeader {
		return ErrChainNeedsHead
	}
	if c.Command < 0 || c.Command > 3 {
		return fmt.Errorf("%w: %d", ErrInvalidCommand, c.Command)
	}
	if _, ok := ParsePolicy(c.CollisionPolicy); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, c.CollisionPolicy)
	}
	if c.Backoff.MinCycles == 0 && c.Backoff.JitterCycles == 0 {
		return ErrInvalidBackoff
	}

	var used [protocol.MaxChannels]bool
	if len(c.Sensors) != int(coop.PositionCount) {
		return fmt.Errorf("%w: want %d positions", ErrInvalidSensors, coop.PositionCount)
	}
	for name, ch := range c.Sensors {
		if _, ok := coop.ParsePosition(name); !ok {
			return fmt.Errorf("%w: unknown position %q", ErrInvalidSensors, name)
		}
		if int(ch) >= protocol.MaxChannels || used[ch] {
			return fmt.Errorf("%w: channel %d", ErrInvalidSensors, ch)
		}
		used[ch] = true
	}

	if len(c.Distance) != 2 {
		return ErrInvalidDistance
	}
	for _, ch := range c.Distance {
		if int(ch) >= protocol.MaxChannels || used[ch] {
			return fmt.Errorf("%w: channel %d", ErrInvalidDistance, ch)
		}
		used[ch] = true
	}
	return nil
}

// ParsePolicy maps a configuration name to a collision policy.
func ParsePolicy(name string) (protocol.CollisionPolicy, bool) {
	switch name {
	case "abort", "":
		return protocol.CollisionAbort, true
	case "sense":
		return protocol.CollisionSense, true
	}
	return 0, false
}

// Channels returns the signal ADC channels in position order.
func (c *RobotConfig) Channels() []core.ADCChannelID {
	chs := make([]core.ADCChannelID, coop.PositionCount)
	for p := coop.Position(0); p < coop.PositionCount; p++ {
		chs[p] = core.ADCChannelID(c.Sensors[p.String()])
	}
	return chs
}

// DistanceChannels returns the left and right distance ADC channels.
func (c *RobotConfig) DistanceChannels() (left, right core.ADCChannelID) {
	return core.ADCChannelID(c.Distance[0]), core.ADCChannelID(c.Distance[1])
}

// Machine returns the state machine configuration.
func (c *RobotConfig) Machine() swarm.Config {
	mode, _ := swarm.ParseMode(c.Mode)
	cfg := swarm.Config{
		ID:          c.ID,
		Mode:        mode,
		FixedLeader: c.FixedLeader,
		Command:     c.Command,
	}
	if c.Calibration != nil {
		cfg.Calibration = *c.Calibration
	}
	return cfg
}

// Transceiver returns the transceiver configuration.
func (c *RobotConfig) Transceiver() protocol.Config {
	policy, _ := ParsePolicy(c.CollisionPolicy)
	return protocol.Config{
		Channels:            c.Channels(),
		Policy:              policy,
		BackoffMinCycles:    c.Backoff.MinCycles,
		BackoffJitterCycles: c.Backoff.JitterCycles,
		Seed:                c.Seed,
	}
}
