package coop

import "swarmbot/core"

// Move is one random-walk primitive.
type Move uint8

const (
	MoveForward Move = iota
	MoveTurnLeft
	MoveTurnRight

	moveCount
)

func (m Move) String() string {
	switch m {
	case MoveForward:
		return "forward"
	case MoveTurnLeft:
		return "left"
	case MoveTurnRight:
		return "right"
	}
	return "invalid"
}

// Random walk move durations, in ticks.
const (
	MinMoveTicks        = 500
	MaxMoveTicks        = 3000
	MaxRotateTicks      = 1000
	CommandMinMoveTicks = 10000
	CommandMaxMoveTicks = 15000
)

// RandomWalk picks timed random moves. A turn is always followed by a
// forward move.
type RandomWalk struct {
	prev     Move
	cur      Move
	duration uint32
	start    uint32
}

// Start resets the walk so that the next Loop picks a move immediately.
func (w *RandomWalk) Start() {
	*w = RandomWalk{}
}

// Current returns the move being executed.
func (w *RandomWalk) Current() Move {
	return w.cur
}

// Loop picks a new move once the current one has run for its duration.
// commanding selects the long forward legs used while a command runs.
func (w *RandomWalk) Loop(r *Robot, now uint32, commanding bool) {
	if now-w.start >= w.duration {
		w.choose(r, now, commanding)
	}
}

func (w *RandomWalk) choose(r *Robot, now uint32, commanding bool) {
	if w.prev >= MoveTurnLeft {
		w.cur = MoveForward
	} else {
		w.cur = Move(core.RandN(r.Rand, uint32(moveCount)))
	}
	w.prev = w.cur

	switch {
	case w.cur >= MoveTurnLeft:
		w.duration = MinMoveTicks + core.RandN(r.Rand, MaxRotateTicks-MinMoveTicks)
	case commanding:
		w.duration = CommandMinMoveTicks + core.RandN(r.Rand, CommandMaxMoveTicks-CommandMinMoveTicks)
	default:
		w.duration = MinMoveTicks + core.RandN(r.Rand, MaxMoveTicks-MinMoveTicks)
	}
	w.start = now

	switch w.cur {
	case MoveForward:
		r.Drive.Forward(MoveSpeed)
	case MoveTurnLeft:
		r.Drive.RotateLeft(MoveSpeed)
	case MoveTurnRight:
		r.Drive.RotateRight(MoveSpeed)
	}
}
