package protocol

import (
	"sync/atomic"

	"swarmbot/core"
)

// MaxChannels is the largest number of receive channels a transceiver serves.
const MaxChannels = 8

// CollisionPolicy selects how the transceiver treats a busy medium.
type CollisionPolicy uint8

const (
	// CollisionAbort refuses sends only while the occupied flag or a backoff
	// countdown is set. Nothing senses the medium on its own; backoff comes
	// from SetBackoff.
	CollisionAbort CollisionPolicy = iota

	// CollisionSense checks every channel before accepting a send and on
	// every tick of a transmission. A busy medium refuses the send (or aborts
	// the transmission) and starts a randomized backoff of whole message
	// cycles.
	CollisionSense
)

func (p CollisionPolicy) String() string {
	if p == CollisionSense {
		return "sense"
	}
	return "abort"
}

// Config configures a Transceiver.
type Config struct {
	// Channels lists the analog inputs, in receive-channel order.
	Channels []core.ADCChannelID

	Policy CollisionPolicy

	// Backoff length is BackoffMinCycles + rand(BackoffJitterCycles) message
	// cycles.
	BackoffMinCycles    uint32
	BackoffJitterCycles uint32

	// Rand is used by Send on the control loop. The tick handler keeps its
	// own generator seeded from Seed.
	Rand core.Rand
	Seed uint32
}

// Default backoff range: up to two seconds of message cycles on top of one
// second.
const (
	DefaultBackoffMinCycles    = 1000000 / (CycleTicks * BitDurationUS)
	DefaultBackoffJitterCycles = 2 * 1000000 / (CycleTicks * BitDurationUS)
)

// Stats counts transceiver events since start.
type Stats struct {
	Preambles uint32
	Decoded   uint32
	Sent      uint32
	Aborted   uint32
	Backoffs  uint32
}

const (
	slotValid    = 1 << 31
	occupiedFlag = 1 << 31

	// maxBackoffCycles keeps a requested countdown clear of occupiedFlag.
	maxBackoffCycles = (occupiedFlag - 1) / CycleTicks
)

// Transceiver sends and receives messages over one emitter and up to
// MaxChannels photodiode channels.
//
// Tick runs in the periodic clock context and is the only writer of the
// receive registers, the encoder, the decode slots, the amplitude snapshot,
// the occupied flag and the backoff countdown. The control loop talks to it
// through atomic cells: it posts send and backoff requests and takes decoded
// messages, each slot being published and consumed with a single atomic
// operation.
type Transceiver struct {
	adc     core.ADCDriver
	emitter core.SignalEmitter
	chans   []core.ADCChannelID
	policy  CollisionPolicy
	minBack uint32
	jitter  uint32
	rng     core.Rand

	// Tick-owned state.
	rx      []Receiver
	raw     []core.ADCValue
	enc     Encoder
	tickRng *core.XorShift32

	// Published by the tick handler.
	slots     []atomic.Uint32
	amps      []atomic.Int32
	preamble  atomic.Bool
	occupied  atomic.Bool
	countdown atomic.Uint32

	// Posted by the control loop.
	reading    atomic.Bool
	beacon     atomic.Bool
	txMessage  atomic.Uint32
	backoffReq atomic.Uint32

	// Set by the control loop, cleared by the tick handler once the
	// message has been fully emitted or aborted.
	sending atomic.Bool

	preambles, decoded, sent, aborted, backoffs atomic.Uint32
}

// New creates a transceiver and configures its analog channels.
// It returns core.ErrInvalidChannel for an empty or oversized channel list,
// or the driver's error for a channel it rejects.
func New(adc core.ADCDriver, emitter core.SignalEmitter, cfg Config) (*Transceiver, error) {
	n := len(cfg.Channels)
	if n == 0 || n > MaxChannels {
		return nil, core.ErrInvalidChannel
	}
	if err := core.ConfigureChannels(adc, cfg.Channels); err != nil {
		return nil, err
	}

	rng := cfg.Rand
	if rng == nil {
		rng = core.NewXorShift32(cfg.Seed ^ 0x5DEECE66)
	}

	t := &Transceiver{
		adc:     adc,
		emitter: emitter,
		chans:   append([]core.ADCChannelID(nil), cfg.Channels...),
		policy:  cfg.Policy,
		minBack: cfg.BackoffMinCycles,
		jitter:  cfg.BackoffJitterCycles,
		rng:     rng,
		rx:      make([]Receiver, n),
		raw:     make([]core.ADCValue, n),
		slots:   make([]atomic.Uint32, n),
		amps:    make([]atomic.Int32, n),
		tickRng: core.NewXorShift32(cfg.Seed),
	}
	t.reading.Store(true)
	emitter.Drive(false)
	return t, nil
}

// Attach registers Tick on the comm timer of clock, one call per base tick.
func (t *Transceiver) Attach(clock core.PeriodicClock) error {
	return clock.Init(core.TimerComm, 1, t.Tick)
}

// Channels returns the number of receive channels.
func (t *Transceiver) Channels() int {
	return len(t.chans)
}

// Policy returns the configured collision policy.
func (t *Transceiver) Policy() CollisionPolicy {
	return t.policy
}

// Tick performs one sample / shift / transmit step.
func (t *Transceiver) Tick() {
	if !t.reading.Load() {
		t.sampleAmplitudes()
		for i := range t.rx {
			t.rx[i].Reset()
		}
		if t.enc.Active() || t.sending.Load() {
			t.enc = Encoder{}
			t.sending.Store(false)
			t.aborted.Add(1)
		}
		t.serviceBackoff()
		t.emitter.Drive(t.beacon.Load())
		return
	}

	// Our own emitter must be dark while the photodiodes are sampled.
	t.emitter.Drive(false)
	t.sampleAmplitudes()

	for i := range t.rx {
		m, ev := t.rx[i].Shift(t.raw[i])
		switch ev {
		case EventPreamble:
			t.preamble.Store(true)
			t.preambles.Add(1)
		case EventMessage:
			t.slots[i].Store(slotValid | uint32(m))
			t.decoded.Add(1)
		}
	}

	t.serviceBackoff()
	t.transmit()
}

func (t *Transceiver) sampleAmplitudes() {
	core.SampleSet(t.adc, t.chans, t.raw)
	for i, v := range t.raw {
		t.amps[i].Store(int32(v))
	}
}

func (t *Transceiver) serviceBackoff() {
	if req := t.backoffReq.Swap(0); req != 0 {
		t.countdown.Store(req &^ occupiedFlag)
		if req&occupiedFlag != 0 {
			t.occupied.Store(true)
		}
		t.backoffs.Add(1)
	}
	if n := t.countdown.Load(); n > 0 {
		n--
		t.countdown.Store(n)
		if n == 0 {
			t.occupied.Store(false)
		}
	}
}

func (t *Transceiver) transmit() {
	if !t.enc.Active() {
		if !t.sending.Load() {
			if t.beacon.Load() {
				t.emitter.Drive(true)
			}
			return
		}
		t.enc.Load(Message(t.txMessage.Load()))
	}

	if t.policy == CollisionSense && t.MediumBusy() {
		t.enc = Encoder{}
		t.emitter.Drive(false)
		t.aborted.Add(1)
		t.countdown.Store(t.backoffTicks(t.tickRng))
		t.occupied.Store(true)
		t.backoffs.Add(1)
		t.sending.Store(false)
		return
	}

	t.emitter.Drive(t.enc.Next())
	if !t.enc.Active() {
		t.sent.Add(1)
		t.sending.Store(false)
	}
}

func (t *Transceiver) backoffTicks(r core.Rand) uint32 {
	cycles := t.minBack + core.RandN(r, t.jitter)
	if cycles == 0 {
		cycles = 1
	}
	return cycles * CycleTicks
}

// MediumBusy reports whether any channel's latest sample is above the
// signal threshold.
func (t *Transceiver) MediumBusy() bool {
	for i := range t.amps {
		if t.amps[i].Load() > SignalThreshold {
			return true
		}
	}
	return false
}

// Send requests transmission of m. It never blocks and never queues: a send
// while a message is in flight, while the medium is marked occupied or
// during backoff is refused without touching the transmit buffer.
func (t *Transceiver) Send(m Message) error {
	if m > messageMask {
		return ErrInvalidMessage
	}
	if t.sending.Load() {
		return ErrSending
	}
	if t.occupied.Load() {
		return ErrMediumBusy
	}
	if t.countdown.Load() > 0 || t.backoffReq.Load() != 0 {
		return ErrBackoff
	}
	if t.policy == CollisionSense && t.MediumBusy() {
		t.backoffReq.Store(occupiedFlag | t.backoffTicks(t.rng))
		return ErrMediumBusy
	}

	t.txMessage.Store(uint32(m))
	t.sending.Store(true)
	return nil
}

// Sending reports whether a message is in flight.
func (t *Transceiver) Sending() bool {
	return t.sending.Load()
}

// SetBackoff refuses sends for the given number of message cycles, capped
// at maxBackoffCycles.
func (t *Transceiver) SetBackoff(cycles uint32) {
	if cycles == 0 {
		return
	}
	if cycles > maxBackoffCycles {
		cycles = maxBackoffCycles
	}
	t.backoffReq.Store(cycles * CycleTicks)
}

// Backoff reports whether sends are currently being refused because of the
// occupied flag or a backoff countdown.
func (t *Transceiver) Backoff() bool {
	return t.occupied.Load() || t.countdown.Load() > 0 || t.backoffReq.Load() != 0
}

// SetReading enables or disables reception. While disabled the transceiver
// still refreshes the amplitude snapshot, drops partial receptions, aborts
// any transmission and holds the emitter at the beacon level.
func (t *Transceiver) SetReading(on bool) {
	t.reading.Store(on)
}

// Reading reports whether reception is enabled.
func (t *Transceiver) Reading() bool {
	return t.reading.Load()
}

// SetBeacon holds the emitter on between transmissions.
func (t *Transceiver) SetBeacon(on bool) {
	t.beacon.Store(on)
}

// PreambleDetected reports, and clears, whether any channel matched the
// preamble since the last call.
func (t *Transceiver) PreambleDetected() bool {
	return t.preamble.Swap(false)
}

// Messages moves every decoded message into in. It returns true if at least
// one message was taken.
func (t *Transceiver) Messages(in *Inbox) bool {
	in.Clear()
	for i := range t.slots {
		if v := t.slots[i].Swap(0); v&slotValid != 0 {
			in.Put(i, Message(v))
		}
	}
	return in.Any()
}

// Signals copies the latest raw amplitude of each channel into out.
func (t *Transceiver) Signals(out []core.ADCValue) {
	for i := range t.amps {
		if i >= len(out) {
			return
		}
		out[i] = core.ADCValue(t.amps[i].Load())
	}
}

// Stats returns the event counters.
func (t *Transceiver) Stats() Stats {
	return Stats{
		Preambles: t.preambles.Load(),
		Decoded:   t.decoded.Load(),
		Sent:      t.sent.Load(),
		Aborted:   t.aborted.Load(),
		Backoffs:  t.backoffs.Load(),
	}
}

// Inbox holds the messages taken from the decode slots in one poll.
type Inbox struct {
	msgs  [MaxChannels]Message
	valid uint8
}

// Put stores m as the message decoded on channel ch. Out of range channels
// are ignored.
func (in *Inbox) Put(ch int, m Message) {
	if ch < 0 || ch >= MaxChannels {
		return
	}
	in.msgs[ch] = m & messageMask
	in.valid |= 1 << ch
}

// Clear empties the inbox.
func (in *Inbox) Clear() {
	*in = Inbox{}
}

// Get returns the message decoded on channel ch, if any.
func (in *Inbox) Get(ch int) (Message, bool) {
	if ch < 0 || ch >= MaxChannels || in.valid&(1<<ch) == 0 {
		return 0, false
	}
	return in.msgs[ch], true
}

// Any reports whether the inbox holds a message.
func (in *Inbox) Any() bool {
	return in.valid != 0
}

// Count returns how many channels decoded m.
func (in *Inbox) Count(m Message) int {
	n := 0
	for ch := 0; ch < MaxChannels; ch++ {
		if got, ok := in.Get(ch); ok && got == m {
			n++
		}
	}
	return n
}

// Contains reports whether any channel decoded m.
func (in *Inbox) Contains(m Message) bool {
	return in.Count(m) > 0
}
