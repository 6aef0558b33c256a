package coop

import (
	"swarmbot/core"
	"swarmbot/protocol"
)

// Link is the part of the transceiver the behaviours use.
type Link interface {
	Send(m protocol.Message) error
	Messages(in *protocol.Inbox) bool
	Signals(out []core.ADCValue)
}

// Robot bundles the handles a behaviour acts on.
type Robot struct {
	Drive core.DriveActuator
	Delay core.Delayer
	Link  Link
	Clock *core.Clocks
	Rand  core.Rand
	Cal   core.Calibration
}

// Speeds used by the behaviours.
const (
	MoveSpeed   = 300
	TurnSpeed   = 500
	TurnMS      = 200
	ReverseMS   = 200
	SearchSpeed = 60
)

// ReadSignals takes one amplitude snapshot.
func (r *Robot) ReadSignals() Signals {
	var s Signals
	r.Link.Signals(s[:])
	return s
}

// TurnToward rotates briefly toward the sensor at p. The front sensor needs
// no turn; the right-hand half turns right, the left-hand half turns left.
// Blocks for TurnMS.
func (r *Robot) TurnToward(p Position) {
	switch {
	case p == Front || p >= PositionCount:
		return
	case p <= midpoint:
		r.Drive.RotateRight(TurnSpeed)
	default:
		r.Drive.RotateLeft(TurnSpeed)
	}
	r.Delay.Sleep(TurnMS)
	r.Drive.Stop()
}

// TurnAway rotates briefly so that the sensor at p moves toward the back.
// Blocks for TurnMS.
func (r *Robot) TurnAway(p Position) {
	switch {
	case p == midpoint || p >= PositionCount:
		return
	case p > midpoint:
		r.Drive.RotateRight(TurnSpeed)
	default:
		r.Drive.RotateLeft(TurnSpeed)
	}
	r.Delay.Sleep(TurnMS)
	r.Drive.Stop()
}

// Reverse backs off briefly and stops.
func (r *Robot) Reverse() {
	r.Drive.Backward(TurnSpeed)
	r.Delay.Sleep(ReverseMS)
	r.Drive.Stop()
	r.Delay.Sleep(10)
}
