package swarm

import (
	"context"
	"strconv"

	"swarmbot/coop"
	"swarmbot/core"
	"swarmbot/protocol"
)

type fakeDrive struct {
	calls []string
}

func (d *fakeDrive) log(s string) { d.calls = append(d.calls, s) }

func (d *fakeDrive) Forward(speed int)     { d.log("forward:" + strconv.Itoa(speed)) }
func (d *fakeDrive) Backward(speed int)    { d.log("backward:" + strconv.Itoa(speed)) }
func (d *fakeDrive) RotateLeft(speed int)  { d.log("left:" + strconv.Itoa(speed)) }
func (d *fakeDrive) RotateRight(speed int) { d.log("right:" + strconv.Itoa(speed)) }
func (d *fakeDrive) Stop()                 { d.log("stop") }
func (d *fakeDrive) RotateRight91()        { d.log("right91") }
func (d *fakeDrive) RotateLeft91()         { d.log("left91") }

func (d *fakeDrive) has(call string) bool {
	for _, c := range d.calls {
		if c == call {
			return true
		}
	}
	return false
}

type tickDelay struct {
	clocks *core.Clocks
}

func (d *tickDelay) Sleep(ms uint32) {
	for i := uint32(0); i < ms; i++ {
		d.clocks.Tick()
	}
}

type fakeLink struct {
	signals  coop.Signals
	inboxes  []map[int]protocol.Message
	sent     []protocol.Message
	preamble bool
	backoff  bool
	reading  bool
	beacon   bool

	// refuse makes Send fail for this message.
	refuse  protocol.Message
	refused int
}

func (l *fakeLink) Send(m protocol.Message) error {
	if l.refuse != 0 && m == l.refuse {
		l.refused++
		return protocol.ErrMediumBusy
	}
	l.sent = append(l.sent, m)
	return nil
}

func (l *fakeLink) Messages(in *protocol.Inbox) bool {
	in.Clear()
	if len(l.inboxes) == 0 {
		return false
	}
	next := l.inboxes[0]
	l.inboxes = l.inboxes[1:]
	for ch, m := range next {
		in.Put(ch, m)
	}
	return in.Any()
}

func (l *fakeLink) Signals(out []core.ADCValue) {
	copy(out, l.signals[:])
}

func (l *fakeLink) PreambleDetected() bool {
	p := l.preamble
	l.preamble = false
	return p
}

func (l *fakeLink) Backoff() bool      { return l.backoff }
func (l *fakeLink) SetReading(on bool) { l.reading = on }
func (l *fakeLink) SetBeacon(on bool)  { l.beacon = on }

func (l *fakeLink) count(m protocol.Message) int {
	n := 0
	for _, s := range l.sent {
		if s == m {
			n++
		}
	}
	return n
}

type fakeObstacle struct {
	present bool
}

func (o *fakeObstacle) Present() bool { return o.present }

type harness struct {
	m        *Machine
	drive    *fakeDrive
	link     *fakeLink
	obstacle *fakeObstacle
	clocks   *core.Clocks
	delay    *tickDelay
}

func newHarness(cfg Config) *harness {
	if cfg.ID == 0 {
		cfg.ID = 2
	}
	if cfg.Calibration.RotateRight91MS == 0 {
		cfg.Calibration = core.Calibration{RotateRight91MS: 855, RotateLeft91MS: 900}
	}
	h := &harness{
		drive:    &fakeDrive{},
		link:     &fakeLink{reading: true},
		obstacle: &fakeObstacle{},
		clocks:   &core.Clocks{},
	}
	h.delay = &tickDelay{clocks: h.clocks}
	h.m = New(cfg, h.link, h.drive, h.delay, h.obstacle, h.clocks, core.NewXorShift32(99))
	return h
}

// advance lets n ticks pass without stepping.
func (h *harness) advance(n uint32) {
	h.delay.Sleep(n)
}

func (h *harness) step() {
	h.m.Step(context.Background())
}

// toRandomWalk runs the idle delay out.
func (h *harness) toRandomWalk() {
	h.advance(h.m.Wait())
	h.step()
}

// toListen walks and then hears a preamble.
func (h *harness) toListen() {
	h.toRandomWalk()
	h.link.preamble = true
	h.step()
}

// hear queues one poll worth of messages and steps.
func (h *harness) hear(msgs map[int]protocol.Message) {
	h.link.inboxes = append(h.link.inboxes, msgs)
	h.step()
}
