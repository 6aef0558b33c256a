package swarm

import (
	"context"

	"swarmbot/coop"
	"swarmbot/core"
	"swarmbot/protocol"
)

// Timing, in ticks.
const (
	MinIdleTicks  = 3000
	RandIdleTicks = 3000
	MinWalkTicks  = 4000
	RandWalkTicks = 5000
	ListenTicks   = 2000

	// LoopMS paces Run between iterations.
	LoopMS = 1
)

// Front-sensor amplitudes used while closing in on a signal source.
const (
	ReverseThreshold core.ADCValue = protocol.SignalThreshold + 3500
	CloseThreshold   core.ADCValue = protocol.SignalThreshold + 3200
)

// ChainFollowSpeed is the drive speed of a chain follower.
const ChainFollowSpeed = coop.MoveSpeed + 100

// Transceiver is the part of the optical link the machine drives.
type Transceiver interface {
	coop.Link
	PreambleDetected() bool
	Backoff() bool
	SetReading(on bool)
	SetBeacon(on bool)
}

// ObstacleSensor reports the latest obstacle detection result.
type ObstacleSensor interface {
	Present() bool
}

// Config is the static behaviour configuration of one robot.
type Config struct {
	ID   uint8
	Mode Mode

	// FixedLeader selects the fixed leader deployment: robot 1 only
	// transmits, every other robot only listens.
	FixedLeader bool

	// Command is the command the robot transmits, 1..3, or 0 to pick one at
	// random for every transmission.
	Command int

	Calibration core.Calibration
}

// Machine is the coordination state machine of one robot.
type Machine struct {
	cfg      Config
	robot    coop.Robot
	link     Transceiver
	obstacle ObstacleSensor
	clock    *core.Clocks

	state   State
	wait    uint32
	send    int
	sendNum int
	tally   [3]int

	leader      bool
	leaderReset bool
	close       bool
	cmd2Return  bool

	walk   coop.RandomWalk
	spread coop.Spread
	chain  coop.Chain
	inbox  protocol.Inbox

	onTransition func(from, to State, clock uint32)
}

// New builds a machine in IDLE with a randomized idle delay.
func New(cfg Config, link Transceiver, drive core.DriveActuator, delay core.Delayer,
	obstacle ObstacleSensor, clock *core.Clocks, rng core.Rand) *Machine {
	m := &Machine{
		cfg:      cfg,
		link:     link,
		obstacle: obstacle,
		clock:    clock,
		robot: coop.Robot{
			Drive: drive,
			Delay: delay,
			Link:  link,
			Clock: clock,
			Rand:  rng,
			Cal:   cfg.Calibration,
		},
		send: 1,
	}
	m.wait = MinIdleTicks + core.RandN(rng, RandIdleTicks)
	return m
}

// OnTransition registers fn to be called after every state change.
func (m *Machine) OnTransition(fn func(from, to State, clock uint32)) {
	m.onTransition = fn
}

// State returns the active state.
func (m *Machine) State() State { return m.state }

// Leader reports whether this robot leads the running command.
func (m *Machine) Leader() bool { return m.leader }

// CloseEnough returns the proximity flag.
func (m *Machine) CloseEnough() bool { return m.close }

// Wait returns the current idle or walk budget in ticks.
func (m *Machine) Wait() uint32 { return m.wait }

// Tallies returns the command 1..3 counts heard while listening.
func (m *Machine) Tallies() [3]int { return m.tally }

// Chain returns the chain formation role tracker.
func (m *Machine) Chain() *coop.Chain { return &m.chain }

// Spread returns the spread-out sub-state tracker of a COMMAND2 follower.
func (m *Machine) Spread() *coop.Spread { return &m.spread }

// Run steps the machine until ctx is cancelled. The wheels are stopped on
// return.
func (m *Machine) Run(ctx context.Context) error {
	defer m.robot.Drive.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.Step(ctx)
		m.robot.Delay.Sleep(LoopMS)
	}
}

// Step runs one control-loop iteration: the active state's handler, then
// command-window expiry and obstacle avoidance. Chain formation runs
// neither.
func (m *Machine) Step(ctx context.Context) {
	switch m.state {
	case Idle:
		m.stepIdle()
	case RandomWalk:
		m.stepRandomWalk()
	case Listen:
		m.stepListen()
	case Transmitting:
		m.stepTransmitting()
	case CommandReceived:
		m.stepCommandReceived()
	case Command1:
		m.stepCommand1(ctx)
	case Command2:
		m.stepCommand2(ctx)
	case Command3:
		m.stepCommand3()
	case ChainFormation:
		m.stepChain(ctx)
	}

	if m.cfg.Mode == ModeChainFormation {
		return
	}
	m.clearCommand()
	m.avoidObstacles()
}

func (m *Machine) enter(to State) {
	from := m.state
	if from == to {
		return
	}
	m.state = to

	clock := m.clock.Phase()
	core.RecordTransition(uint8(from), uint8(to), clock, uint32(m.cfg.ID))
	core.DebugAsync(core.TransitionLine(from.String(), to.String(), clock))
	if m.onTransition != nil {
		m.onTransition(from, to, clock)
	}
}

// fixedHead reports whether this robot is the designated leader of the
// fixed leader deployment.
func (m *Machine) fixedHead() bool {
	return m.cfg.FixedLeader && m.cfg.ID == 1
}

func (m *Machine) walkBudget() uint32 {
	return MinWalkTicks + core.RandN(m.robot.Rand, RandWalkTicks)
}

func (m *Machine) startWalk(extra uint32) {
	m.enter(RandomWalk)
	m.wait = m.walkBudget() + extra
	m.walk.Start()
	m.clock.ResetCommand()
	m.clock.ResetPhase()
	// A preamble heard before the walk started is stale.
	m.link.PreambleDetected()
}

func (m *Machine) resetTallies() {
	m.tally = [3]int{}
}

func (m *Machine) stepIdle() {
	if m.clock.Phase() < m.wait {
		return
	}
	switch m.cfg.Mode {
	case ModeChainFormation:
		m.chain.Start()
		m.enter(ChainFormation)
	case ModeFollowChain:
		m.enter(Command3)
		m.clock.ResetCommand()
		m.clock.ResetPhase()
	default:
		m.startWalk(0)
	}
}

func (m *Machine) stepRandomWalk() {
	m.walk.Loop(&m.robot, m.clock.Command(), false)

	if !m.fixedHead() && m.link.PreambleDetected() {
		m.robot.Drive.Stop()
		m.enter(Listen)
		m.clock.ResetPhase()
		return
	}

	if m.cfg.FixedLeader && !m.fixedHead() {
		return
	}
	if m.clock.Phase() >= m.wait {
		m.robot.Drive.Stop()
		m.enter(Transmitting)
		m.clock.ResetPhase()
	}
}

func (m *Machine) stepListen() {
	if m.link.Messages(&m.inbox) {
		m.robot.Drive.Stop()
		if m.inbox.Contains(protocol.MsgCommence) {
			m.enter(CommandReceived)
		}
		m.tally[0] += m.inbox.Count(protocol.MsgCommand1)
		m.tally[1] += m.inbox.Count(protocol.MsgCommand2)
		m.tally[2] += m.inbox.Count(protocol.MsgCommand3)
		m.clock.ResetPhase()
		return
	}

	if m.clock.Phase() >= ListenTicks {
		m.resetTallies()
		m.startWalk(0)
	}
}

func (m *Machine) chooseCommand() int {
	if m.cfg.Command >= 1 && m.cfg.Command <= 3 {
		return m.cfg.Command
	}
	return 1 + int(core.RandN(m.robot.Rand, 3))
}

func (m *Machine) stepTransmitting() {
	m.robot.Drive.Stop()

	if m.link.Backoff() {
		core.DebugAsync(core.KeyValueLine("COMM", "backoff", m.sendNum))
		m.sendNum = 0
		m.leader = false
		m.leaderReset = false
		m.startWalk(0)
		return
	}
	if m.clock.Phase() < protocol.MessageInterval {
		return
	}

	if m.leaderReset {
		m.leaderReset = false
		if m.leader {
			m.lead()
		} else {
			m.startWalk(0)
		}
		return
	}

	if m.sendNum == 0 {
		m.send = m.chooseCommand()
	}
	m.sendNum++

	msg, _ := protocol.Command(m.send)
	final := m.sendNum >= protocol.MaxSendCount
	if final {
		msg = protocol.MsgCommence
	}
	m.clock.ResetPhase()

	// A refused repetition is retried on the next interval. A busy medium
	// shows up as backoff on the next iteration.
	if err := m.link.Send(msg); err != nil {
		core.DebugAsync(core.KeyValueLine("COMM", "refused", m.sendNum))
		m.sendNum--
		return
	}
	if final {
		m.sendNum = 0
		m.leaderReset = true
		m.leader = true
	}
}

// lead starts the command this robot just transmitted, as its leader.
func (m *Machine) lead() {
	switch m.send {
	case 1:
		m.link.SetReading(false)
		m.link.SetBeacon(true)
		m.walk.Start()
		m.enter(Command1)
	case 2:
		m.link.SetReading(false)
		m.enter(Command2)
	case 3:
		m.walk.Start()
		m.enter(Command3)
	}
	m.clock.ResetCommand()
	m.clock.ResetPhase()
}

func (m *Machine) stepCommandReceived() {
	switch {
	case m.tally[0] >= protocol.CommandQuorum:
		m.link.SetReading(false)
		m.enter(Command1)
	case m.tally[1] >= protocol.CommandQuorum:
		m.link.SetReading(false)
		m.spread.Start()
		m.enter(Command2)
	case m.tally[2] >= protocol.CommandQuorum:
		m.enter(Command3)
	default:
		m.enter(Listen)
		return
	}
	m.resetTallies()
	m.clock.ResetCommand()
	m.clock.ResetPhase()
}

func (m *Machine) stepCommand1(ctx context.Context) {
	if m.leader {
		m.link.SetBeacon(true)
		m.walk.Loop(&m.robot, m.clock.Command(), true)
		return
	}
	m.robot.Home(ctx, m.close)
}

func (m *Machine) stepCommand2(ctx context.Context) {
	phase := m.clock.Phase()
	if m.leader {
		m.link.SetBeacon(coop.SpreadBeaconOn(phase, m.cfg.Calibration.RotateRight91MS))
		return
	}
	m.spread.Step(ctx, &m.robot, phase, m.close)
	if m.spread.Phase() == coop.SpreadDone {
		m.cmd2Return = true
	}
}

func (m *Machine) stepCommand3() {
	if m.leader || m.fixedHead() {
		if m.clock.Command() >= protocol.MessageInterval {
			_ = m.link.Send(protocol.Message(1))
			m.clock.ResetCommand()
		}
		m.walk.Loop(&m.robot, m.clock.Phase(), true)
		return
	}

	if m.link.Messages(&m.inbox) {
		target := protocol.Message(m.cfg.ID - 1)
		for ch := 0; ch < int(coop.PositionCount); ch++ {
			if got, ok := m.inbox.Get(ch); ok && got == target {
				m.robot.TurnToward(coop.Position(ch))
				if m.close {
					m.robot.Drive.Stop()
				} else {
					m.robot.Drive.Forward(ChainFollowSpeed)
				}
				break
			}
		}
	}

	if m.clock.Command() >= protocol.MessageInterval {
		_ = m.link.Send(protocol.Message(m.cfg.ID))
		m.clock.ResetCommand()
	}
}

func (m *Machine) stepChain(ctx context.Context) {
	if m.chain.Step(ctx, &m.robot) {
		core.DebugAsync("[CHAIN] role=" + m.chain.Role().String())
	}
}

// clearCommand ends a commanded behaviour once the command period is over.
// A leader gets a longer walk so that someone else gets to lead next.
func (m *Machine) clearCommand() {
	if !m.state.Commanding() || m.clock.Phase() < protocol.CommandPeriod {
		return
	}
	m.link.SetBeacon(false)
	m.link.SetReading(true)
	m.robot.Drive.Stop()

	var extra uint32
	if m.leader {
		extra = protocol.LeaderBackoff
	}
	m.leader = false
	m.leaderReset = false
	m.close = false
	m.cmd2Return = false
	m.startWalk(extra)
}

// usesProximity reports whether the active behaviour homes in on a signal
// and so wants the proximity flag instead of an evasive turn.
func (m *Machine) usesProximity() bool {
	switch m.state {
	case Command1:
		return !m.leader
	case Command2:
		return m.cmd2Return
	case Command3:
		return !(m.leader || m.fixedHead())
	}
	return false
}

func (m *Machine) avoidObstacles() {
	if !m.obstacle.Present() {
		return
	}

	if m.usesProximity() {
		sig := m.robot.ReadSignals()
		switch front := sig.At(coop.Front); {
		case front >= ReverseThreshold:
			m.robot.Reverse()
		case front >= CloseThreshold:
			m.close = true
		default:
			m.close = false
		}
		return
	}

	m.robot.Drive.RotateRight91()
	if m.leader || m.fixedHead() {
		m.robot.Drive.Forward(coop.MoveSpeed)
	} else {
		m.robot.Drive.Stop()
	}
}
