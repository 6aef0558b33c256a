package config

import "swarmbot/core"

// calibrations holds the measured wheel trims and 91° turn times of the
// built robots, by id.
var calibrations = map[uint8]core.Calibration{
	1: {ForwardTrim: -50, BackwardTrim: -120, RotateRight91MS: 855, RotateLeft91MS: 900},
	2: {ForwardTrim: -80, BackwardTrim: 60, RotateRight91MS: 740, RotateLeft91MS: 700},
	3: {ForwardTrim: 0, BackwardTrim: -60, RotateRight91MS: 910, RotateLeft91MS: 790},
	4: {ForwardTrim: -70, BackwardTrim: 30, RotateRight91MS: 810, RotateLeft91MS: 850},
}

// DefaultCalibration is used for robots that were never measured.
var DefaultCalibration = core.Calibration{RotateRight91MS: 855, RotateLeft91MS: 900}

// CalibrationFor returns the calibration of robot id.
func CalibrationFor(id uint8) core.Calibration {
	if cal, ok := calibrations[id]; ok {
		return cal
	}
	return DefaultCalibration
}

// DefaultConfig returns the configuration of robot id in the swarm mode.
func DefaultConfig(id uint8) *RobotConfig {
	c := &RobotConfig{ID: id}
	applyDefaults(c)
	return c
}
