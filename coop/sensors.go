// Package coop holds the direction/signal analysis and the cooperative
// behaviours the coordination state machine composes: turning toward or
// away from a signal, obstacle sensing, random walk, spreading out and
// chain formation.
package coop

import (
	"swarmbot/core"
	"swarmbot/protocol"
)

// Position names a photodiode around the robot body. The order is clockwise
// from the front and is also the receive-channel order of the transceiver.
type Position uint8

const (
	Front Position = iota
	FrontRight
	BackRight
	Back
	BackLeft
	FrontLeft

	PositionCount
)

// midpoint splits the positions into the right-hand and left-hand halves.
const midpoint = PositionCount / 2

var positionNames = [PositionCount]string{
	"front", "front_right", "back_right", "back", "back_left", "front_left",
}

func (p Position) String() string {
	if p < PositionCount {
		return positionNames[p]
	}
	return "invalid"
}

// ParsePosition maps a configuration name to a Position.
func ParsePosition(name string) (Position, bool) {
	for i, n := range positionNames {
		if n == name {
			return Position(i), true
		}
	}
	return 0, false
}

// Signals is one amplitude snapshot, indexed by Position.
type Signals [PositionCount]core.ADCValue

// At returns the amplitude seen by the sensor at p.
func (s *Signals) At(p Position) core.ADCValue {
	return s[p]
}

// Strongest returns the position with the highest amplitude.
func (s *Signals) Strongest() Position {
	return Position(StrongestDirection(s[:]))
}

// Any reports whether any sensor sees a signal at or above the threshold.
func (s *Signals) Any() bool {
	for _, v := range s {
		if v >= protocol.SignalThreshold {
			return true
		}
	}
	return false
}

// StrongestDirection returns the index of the largest sample. Ties go to the
// lowest index. An empty slice yields 0.
func StrongestDirection(samples []core.ADCValue) int {
	best := 0
	for i := 1; i < len(samples); i++ {
		if samples[i] > samples[best] {
			best = i
		}
	}
	return best
}
