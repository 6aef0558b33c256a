package coop

import (
	"strconv"

	"swarmbot/core"
	"swarmbot/protocol"
)

type fakeDrive struct {
	calls []string
}

func (d *fakeDrive) log(s string)          { d.calls = append(d.calls, s) }
func (d *fakeDrive) Forward(speed int)     { d.log("forward:" + strconv.Itoa(speed)) }
func (d *fakeDrive) Backward(speed int)    { d.log("backward:" + strconv.Itoa(speed)) }
func (d *fakeDrive) RotateLeft(speed int)  { d.log("left:" + strconv.Itoa(speed)) }
func (d *fakeDrive) RotateRight(speed int) { d.log("right:" + strconv.Itoa(speed)) }
func (d *fakeDrive) Stop()                 { d.log("stop") }
func (d *fakeDrive) RotateRight91()        { d.log("right91") }
func (d *fakeDrive) RotateLeft91()         { d.log("left91") }
func (d *fakeDrive) reset()                { d.calls = nil }

func (d *fakeDrive) last() string {
	if len(d.calls) == 0 {
		return ""
	}
	return d.calls[len(d.calls)-1]
}

func (d *fakeDrive) count(call string) int {
	n := 0
	for _, c := range d.calls {
		if c == call {
			n++
		}
	}
	return n
}

// tickDelay advances the clocks by one tick per millisecond slept.
type tickDelay struct {
	clocks *core.Clocks
	slept  uint32
}

func (d *tickDelay) Sleep(ms uint32) {
	for i := uint32(0); i < ms; i++ {
		d.clocks.Tick()
	}
	d.slept += ms
}

type fakeLink struct {
	signals  Signals
	signalFn func() Signals
	inboxes  []map[int]protocol.Message
	sent     []protocol.Message
}

func (l *fakeLink) Send(m protocol.Message) error {
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
	s := l.signals
	if l.signalFn != nil {
		s = l.signalFn()
	}
	copy(out, s[:])
}

type testRobot struct {
	*Robot
	drive  *fakeDrive
	link   *fakeLink
	delay  *tickDelay
	clocks *core.Clocks
}

func newTestRobot() *testRobot {
	clocks := &core.Clocks{}
	tr := &testRobot{
		drive:  &fakeDrive{},
		link:   &fakeLink{},
		delay:  &tickDelay{clocks: clocks},
		clocks: clocks,
	}
	tr.Robot = &Robot{
		Drive: tr.drive,
		Delay: tr.delay,
		Link:  tr.link,
		Clock: clocks,
		Rand:  core.NewXorShift32(7),
		Cal:   core.Calibration{RotateRight91MS: 855, RotateLeft91MS: 900},
	}
	return tr
}

type fakeADC struct {
	values map[core.ADCChannelID]core.ADCValue
	reads  int
}

func (a *fakeADC) Init() error { return nil }

func (a *fakeADC) ConfigureChannel(ch core.ADCChannelID) error {
	if ch > 7 {
		return core.ErrInvalidChannel
	}
	return nil
}

func (a *fakeADC) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	a.reads++
	return a.values[ch], nil
}

type fakeEmitter struct {
	history []bool
}

func (e *fakeEmitter) Drive(on bool) {
	e.history = append(e.history, on)
}
