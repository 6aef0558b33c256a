package sim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"swarmbot/config"
	"swarmbot/coop"
	"swarmbot/core"
	"swarmbot/protocol"
	"swarmbot/swarm"
)

// tickSeconds is the length of one base tick.
const tickSeconds = protocol.BitDurationUS / 1e6

// Transition is one recorded state change.
type Transition struct {
	Tick  uint32 // World tick
	Clock uint32 // Robot's phase clock
	From  swarm.State
	To    swarm.State
}

// Bot is one simulated robot: its pose, its outputs and the real firmware
// components running on top of simulated drivers.
type Bot struct {
	world *World
	index int
	cfg   config.RobotConfig

	X, Y, Heading float64

	pulse  [core.ServoCount]uint16
	distOn bool

	// position of each ADC channel, -1 for unused
	chanPos          [protocol.MaxChannels]int
	distLeft, distRt core.ADCChannelID

	sched   core.Scheduler
	clocks  core.Clocks
	link    *protocol.Transceiver
	machine *swarm.Machine
	history []Transition

	// Lock-step handshake with the world loop.
	deadline uint32
	wake     chan struct{}
	parked   chan struct{}
	exited   chan struct{}
	done     bool
	stopped  atomic.Bool
}

// ID returns the robot's configured id.
func (b *Bot) ID() uint8 {
	return b.cfg.ID
}

// Machine returns the robot's state machine. Only inspect it while the world
// is not running.
func (b *Bot) Machine() *swarm.Machine {
	return b.machine
}

// History returns the recorded transitions.
func (b *Bot) History() []Transition {
	return b.history
}

// Reached reports whether the robot ever entered s.
func (b *Bot) Reached(s swarm.State) bool {
	for _, t := range b.history {
		if t.To == s {
			return true
		}
	}
	return false
}

// World owns the robots, the optical medium and the tick loop.
type World struct {
	runID    string
	scenario string
	arena    Arena
	bots     []*Bot
	now      uint32

	// Emitter levels committed at the end of the previous tick, and the
	// levels being driven during the current one.
	levels []bool
	next   []bool
}

// NewWorld builds a world from a normalized scenario. seed is mixed into
// every robot's configured seed.
func NewWorld(sc *Scenario, seed uint32) (*World, error) {
	w := &World{
		runID:    uuid.NewString(),
		scenario: sc.Name,
		arena:    sc.Arena,
		levels:   make([]bool, len(sc.Robots)),
		next:     make([]bool, len(sc.Robots)),
	}
	for i := range sc.Robots {
		b, err := w.newBot(i, &sc.Robots[i], seed^sc.Seed)
		if err != nil {
			return nil, fmt.Errorf("robot %d: %w", sc.Robots[i].ID, err)
		}
		w.bots = append(w.bots, b)
	}
	return w, nil
}

func (w *World) newBot(i int, spec *RobotSpec, seed uint32) (*Bot, error) {
	b := &Bot{
		world:   w,
		index:   i,
		cfg:     spec.RobotConfig,
		X:       spec.X,
		Y:       spec.Y,
		Heading: spec.Heading * math.Pi / 180,
		wake:    make(chan struct{}),
		parked:  make(chan struct{}),
		exited:  make(chan struct{}),
	}
	for ch := range b.chanPos {
		b.chanPos[ch] = -1
	}
	for p, ch := range b.cfg.Channels() {
		b.chanPos[ch] = p
	}
	b.distLeft, b.distRt = b.cfg.DistanceChannels()

	delay := botDelay{b}
	drive, err := core.NewDrive(botServo{b}, delay, *b.cfg.Calibration)
	if err != nil {
		return nil, err
	}

	tcfg := b.cfg.Transceiver()
	tcfg.Seed ^= seed
	b.link, err = protocol.New(botADC{b}, signalEmitter{b}, tcfg)
	if err != nil {
		return nil, err
	}
	obstacle, err := coop.NewObstacleDetector(botADC{b}, distanceEmitter{b}, b.distLeft, b.distRt)
	if err != nil {
		return nil, err
	}

	if err := b.sched.Init(core.TimerClock, 1, b.clocks.Tick); err != nil {
		return nil, err
	}
	if err := b.link.Attach(&b.sched); err != nil {
		return nil, err
	}
	if err := obstacle.Attach(&b.sched); err != nil {
		return nil, err
	}

	b.machine = swarm.New(b.cfg.Machine(), b.link, drive, delay, obstacle, &b.clocks,
		core.NewXorShift32(b.cfg.Seed^seed))
	b.machine.OnTransition(func(from, to swarm.State, clock uint32) {
		b.history = append(b.history, Transition{Tick: w.now, Clock: clock, From: from, To: to})
	})
	return b, nil
}

// RunID identifies this run in logs and reports.
func (w *World) RunID() string {
	return w.runID
}

// Bots returns the robots in scenario order.
func (w *World) Bots() []*Bot {
	return w.bots
}

// Now returns the number of ticks simulated so far.
func (w *World) Now() uint32 {
	return w.now
}

// Run simulates ticks base ticks. Each robot's control loop runs on its own
// goroutine, but only one of them (or the tick loop) executes at a time: a
// robot runs until it sleeps, and the tick loop resumes it once its sleep has
// elapsed. Run may be called once.
func (w *World) Run(ctx context.Context, ticks uint32) (*Report, error) {
	g, gCtx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	for _, b := range w.bots {
		b := b
		g.Go(func() error {
			defer close(b.exited)
			err := b.machine.Run(runCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	for _, b := range w.bots {
		b.waitParked()
	}

	for t := uint32(0); t < ticks && gCtx.Err() == nil; t++ {
		w.step()
	}

	cancel()
	for _, b := range w.bots {
		b.stopped.Store(true)
	}
	for _, b := range w.bots {
		if !b.done {
			b.wake <- struct{}{}
			<-b.exited
			b.done = true
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return w.Report(), nil
}

// step advances every robot's timers by one tick, moves the robots, then
// resumes the control loops whose sleep has elapsed.
func (w *World) step() {
	w.now++
	copy(w.next, w.levels)
	for _, b := range w.bots {
		b.sched.Advance()
	}
	copy(w.levels, w.next)

	for _, b := range w.bots {
		w.move(b, tickSeconds)
	}

	for _, b := range w.bots {
		if b.done || int32(w.now-b.deadline) < 0 {
			continue
		}
		b.wake <- struct{}{}
		b.waitParked()
	}
}

func (b *Bot) waitParked() {
	select {
	case <-b.parked:
	case <-b.exited:
		b.done = true
	}
}

// botDelay parks the control loop until the world has advanced ms ticks.
type botDelay struct{ b *Bot }

func (d botDelay) Sleep(ms uint32) {
	b := d.b
	if b.stopped.Load() {
		return
	}
	b.deadline = b.world.now + ms
	b.parked <- struct{}{}
	<-b.wake
}

// botADC samples the simulated medium.
type botADC struct{ b *Bot }

func (a botADC) Init() error { return nil }

func (a botADC) ConfigureChannel(ch core.ADCChannelID) error {
	if int(ch) >= protocol.MaxChannels {
		return core.ErrInvalidChannel
	}
	return nil
}

func (a botADC) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	b := a.b
	if int(ch) >= protocol.MaxChannels {
		return core.ADCFault, core.ErrInvalidChannel
	}
	if p := b.chanPos[ch]; p >= 0 {
		return b.world.signalAt(b.index, coop.Position(p)), nil
	}
	if (ch == b.distLeft || ch == b.distRt) && b.distOn {
		return b.world.reflectionAt(b.index), nil
	}
	return AmbientLevel, nil
}

// signalEmitter drives the robot's level in the medium for the current tick.
type signalEmitter struct{ b *Bot }

func (e signalEmitter) Drive(on bool) {
	e.b.world.next[e.b.index] = on
}

type distanceEmitter struct{ b *Bot }

func (e distanceEmitter) Drive(on bool) {
	e.b.distOn = on
}

// botServo records the wheel pulses for the kinematics.
type botServo struct{ b *Bot }

func (s botServo) ConfigureServo(ch core.ServoChannel) error {
	if ch >= core.ServoCount {
		return core.ErrInvalidServo
	}
	s.b.pulse[ch] = core.ServoNeutralUS
	return nil
}

func (s botServo) SetPulse(ch core.ServoChannel, us uint16) error {
	if ch >= core.ServoCount {
		return core.ErrInvalidServo
	}
	s.b.pulse[ch] = us
	return nil
}
