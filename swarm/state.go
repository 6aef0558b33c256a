// Package swarm is the coordination state machine: it listens for and
// transmits commands, elects a leader by transmission and runs the commanded
// cooperative behaviour, with obstacle avoidance interleaved on every
// iteration.
package swarm

// State is the active coordination state.
type State uint8

const (
	Idle State = iota
	RandomWalk
	Listen
	Transmitting
	CommandReceived
	Command1
	Command2
	Command3
	ChainFormation

	stateCount
)

var stateNames = [stateCount]string{
	"IDLE",
	"RANDOM_WALK",
	"LISTEN",
	"TRANSMITTING",
	"COMMAND_RECEIVED",
	"COMMAND1",
	"COMMAND2",
	"COMMAND3",
	"CHAIN_FORMATION",
}

func (s State) String() string {
	if s < stateCount {
		return stateNames[s]
	}
	return "UNKNOWN"
}

// ParseState maps a state name back to its State.
func ParseState(name string) (State, bool) {
	for i, n := range stateNames {
		if n == name {
			return State(i), true
		}
	}
	return 0, false
}

// StateName is State.String for a raw state number, as stored in the
// transition ring.
func StateName(s uint8) string {
	return State(s).String()
}

// Commanding reports whether s runs a commanded behaviour that expires.
func (s State) Commanding() bool {
	return s >= Command1 && s <= Command3
}

// Mode selects what a robot does once its idle delay has elapsed.
type Mode uint8

const (
	// ModeSwarm random-walks and negotiates commands.
	ModeSwarm Mode = iota
	// ModeChainFormation lines robots up by beacon counting, forever.
	ModeChainFormation
	// ModeFollowChain starts straight in the chain-follow command.
	ModeFollowChain
)

func (m Mode) String() string {
	switch m {
	case ModeChainFormation:
		return "chain_formation"
	case ModeFollowChain:
		return "follow_chain"
	}
	return "swarm"
}

// ParseMode maps a configuration name to a Mode.
func ParseMode(name string) (Mode, bool) {
	switch name {
	case "swarm", "":
		return ModeSwarm, true
	case "chain_formation":
		return ModeChainFormation, true
	case "follow_chain":
		return ModeFollowChain, true
	}
	return 0, false
}
