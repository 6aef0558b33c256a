package protocol

import "swarmbot/core"

// Event is what a receiver observed on a tick.
type Event uint8

const (
	EventNone Event = iota
	EventPreamble
	EventMessage
)

// Receiver is the per-channel shift register. It waits for the preamble,
// then collects exactly DataTicks half-symbols and decodes them.
//
// A receiver is owned by the tick handler and is not safe for concurrent use.
type Receiver struct {
	buf     uint16
	count   uint8
	started bool
}

// Started reports whether the preamble has been matched.
func (r *Receiver) Started() bool {
	return r.started
}

// Reset drops any partial reception.
func (r *Receiver) Reset() {
	*r = Receiver{}
}

// Shift feeds one sample. It returns EventPreamble when the preamble has just
// matched and EventMessage, with the decoded message, when a full message
// has been collected.
func (r *Receiver) Shift(sample core.ADCValue) (Message, Event) {
	var bit uint16
	if sample >= SignalThreshold {
		bit = 1
	}
	r.buf = (r.buf<<1 | bit) & receiveMask

	if r.started {
		r.count++
		if r.count == DataTicks {
			m := decode(r.buf)
			r.Reset()
			return m, EventMessage
		}
		return 0, EventNone
	}

	if r.buf == Preamble {
		r.started = true
		r.buf = 0
		r.count = 0
		return 0, EventPreamble
	}
	if sample <= SignalThreshold {
		// A low sample ends any run that was not the preamble.
		r.buf = 0
	}
	return 0, EventNone
}

// decode turns DataTicks half-symbols (oldest in the high bit) into a message.
// The line is low before the first data half-symbol, so the first bit is 1
// when that half-symbol stayed low. Each later bit is 1 when its first
// half-symbol equals the previous one.
func decode(buf uint16) Message {
	at := func(j int) uint16 {
		return (buf >> (DataTicks - 1 - j)) & 1
	}

	var m Message
	if at(0) == 0 {
		m = 1
	}
	for j := 2; j < DataTicks; j += 2 {
		m <<= 1
		if at(j) == at(j-1) {
			m |= 1
		}
	}
	return m
}
