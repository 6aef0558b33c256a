package protocol

// Encoder produces the emitter level for each tick of one framed message:
// the preamble bits one per tick, then the message in differential-Manchester
// half-symbols. A 0 bit inverts the level on its first half-symbol, a 1 bit
// keeps it; every bit inverts on its second half-symbol.
//
// The encoder is owned by the tick handler and is not safe for concurrent use.
type Encoder struct {
	msg    Message
	index  uint8
	data   bool
	level  bool
	active bool
}

// Load starts encoding m from the first preamble bit.
func (e *Encoder) Load(m Message) {
	*e = Encoder{msg: m & messageMask, active: true}
}

// Active reports whether a message is being encoded.
func (e *Encoder) Active() bool {
	return e.active
}

// Next returns the level for the current tick and advances. An idle encoder
// returns false.
func (e *Encoder) Next() bool {
	if !e.active {
		return false
	}

	if !e.data && e.index >= PreambleLength {
		e.data = true
		e.level = false
		e.index = 0
	}

	if !e.data {
		e.level = (Preamble>>(PreambleLength-1-e.index))&1 == 1
	} else {
		bit := (e.msg >> (MessageLength - 1 - e.index/2)) & 1
		if e.index&1 == 0 {
			if bit == 0 {
				e.level = !e.level
			}
		} else {
			e.level = !e.level
		}
	}

	level := e.level
	e.index++
	if e.data && e.index >= DataTicks {
		*e = Encoder{}
	}
	return level
}

// Levels returns the full tick sequence for m. Used by tests and the
// simulator's scripted emitters.
func Levels(m Message) []bool {
	var e Encoder
	e.Load(m)
	out := make([]bool, 0, CycleTicks)
	for e.Active() {
		out = append(out, e.Next())
	}
	return out
}
