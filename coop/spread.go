package coop

import "context"

// SpreadPhase is the sub-state of the spread-out behaviour.
type SpreadPhase uint8

const (
	SpreadTurnAway SpreadPhase = iota
	SpreadForward1
	SpreadReverse
	SpreadForward2
	SpreadDone
)

func (p SpreadPhase) String() string {
	switch p {
	case SpreadTurnAway:
		return "TURN_AWAY"
	case SpreadForward1:
		return "FORWARD_1"
	case SpreadReverse:
		return "REVERSE"
	case SpreadForward2:
		return "FORWARD_2"
	case SpreadDone:
		return "DONE"
	}
	return "UNKNOWN"
}

// Spread-out timing, in ticks.
const (
	TurnAwayTicks = 1500
	ForwardTicks  = 7000
	blinkMargin   = 500
)

// SpreadBeaconOn reports whether the spreading leader's beacon is lit at
// phase time now: during the followers' turn-away and again near the end of
// their second forward leg, so they can find their way back.
func SpreadBeaconOn(now, rotate91MS uint32) bool {
	return now <= TurnAwayTicks+blinkMargin ||
		now >= TurnAwayTicks+2*ForwardTicks+2*rotate91MS-blinkMargin
}

// Spread drives a follower away from the leader, turns it around, drives it
// back and then homes in on the beacon. Phase changes are gated by the phase
// time passed to Step.
type Spread struct {
	phase SpreadPhase
	start uint32
}

// Start resets to the turn-away phase, timed from phase time zero.
func (s *Spread) Start() {
	*s = Spread{}
}

// Phase returns the current sub-state.
func (s *Spread) Phase() SpreadPhase {
	return s.phase
}

// Step runs one control-loop iteration. close is the proximity flag; it only
// matters once the robot is homing in.
func (s *Spread) Step(ctx context.Context, r *Robot, now uint32, close bool) {
	switch s.phase {
	case SpreadTurnAway:
		sig := r.ReadSignals()
		r.TurnAway(sig.Strongest())
		if now-s.start >= TurnAwayTicks {
			s.enter(SpreadForward1, now)
		}

	case SpreadForward1:
		r.Drive.Forward(MoveSpeed)
		if now-s.start >= ForwardTicks {
			s.enter(SpreadReverse, now)
		}

	case SpreadReverse:
		r.Drive.RotateRight91()
		r.Drive.RotateRight91()
		s.enter(SpreadForward2, now)

	case SpreadForward2:
		r.Drive.Forward(MoveSpeed)
		if now-s.start >= ForwardTicks {
			r.Drive.Stop()
			s.enter(SpreadDone, now)
		}

	case SpreadDone:
		r.Home(ctx, close)
	}
}

func (s *Spread) enter(p SpreadPhase, now uint32) {
	s.phase = p
	s.start = now
}

// Home turns toward the strongest signal and drives at it unless close is
// set. With every sensor dark it first runs a bounded signal search.
func (r *Robot) Home(ctx context.Context, close bool) {
	sig := r.ReadSignals()
	if !sig.Any() {
		if r.SearchSignal(ctx, DefaultSearchTimeout) != SearchFound {
			return
		}
		sig = r.ReadSignals()
	}
	r.TurnToward(sig.Strongest())

	if close {
		r.Drive.Stop()
	} else {
		r.Drive.Forward(MoveSpeed)
	}
}
