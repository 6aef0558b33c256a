// Package protocol implements the line-of-sight optical protocol spoken
// between robots: 4-bit messages, differential-Manchester line coding and a
// fixed preamble, sampled once per base tick.
package protocol

import (
	"errors"

	"swarmbot/core"
)

// Version of the optical protocol
const Version = "1.0.0"

// Line timing. One base tick is one half-symbol.
const (
	MessageLength   = 4      // Bits per message
	BitDurationUS   = 1000   // Duration of one half-symbol tick
	SignalThreshold = 500    // Samples above this read as "1"
	Preamble        = 0b1110 // Sent before every message
	PreambleLength  = 4      // Bits in the preamble

	// DataTicks is the number of half-symbols carrying the message.
	DataTicks = 2 * MessageLength

	// CycleTicks is the number of ticks one framed message occupies.
	CycleTicks = DataTicks + PreambleLength

	// MessageInterval is the spacing between repeated sends.
	MessageInterval = 2 * CycleTicks

	// MaxSendCount is the number of repetitions in a 5 second transmission.
	MaxSendCount = 5 * 1000000 / (MessageInterval * BitDurationUS)

	// CommandQuorum is the number of identical commands needed to act.
	CommandQuorum = 3

	// CommandPeriod is how long a commanded behaviour runs, in ticks.
	CommandPeriod = 50 * 1000000 / BitDurationUS

	// LeaderBackoff is extra walk time given to the previous leader.
	LeaderBackoff = 5 * 1000000 / BitDurationUS

	// receiveMask bounds the receive shift register.
	receiveMask = 1<<CycleTicks - 1
)

// Message is a 4-bit symbol.
type Message uint8

// Reserved message values. Chain-follow messages are raw robot ids.
const (
	MsgCommand1 Message = 0b0001
	MsgCommand2 Message = 0b0010
	MsgCommand3 Message = 0b0100
	MsgBeacon   Message = 0b1100
	MsgCommence Message = 0b1011

	messageMask = 1<<MessageLength - 1
)

// Command returns the selector message for command n (1..3).
func Command(n int) (Message, bool) {
	switch n {
	case 1:
		return MsgCommand1, true
	case 2:
		return MsgCommand2, true
	case 3:
		return MsgCommand3, true
	}
	return 0, false
}

func (m Message) String() string {
	switch m {
	case MsgCommand1:
		return "CMD1"
	case MsgCommand2:
		return "CMD2"
	case MsgCommand3:
		return "CMD3"
	case MsgBeacon:
		return "BEACON"
	case MsgCommence:
		return "COMMENCE"
	}
	return "ID" + core.Itoa(int(m))
}

// Send refusals. None of these is fatal; the caller retries on a later cycle
// or changes behaviour.
var (
	ErrSending        = errors.New("transmission in progress")
	ErrMediumBusy     = errors.New("medium occupied")
	ErrBackoff        = errors.New("in backoff")
	ErrInvalidMessage = errors.New("message does not fit in 4 bits")
)
