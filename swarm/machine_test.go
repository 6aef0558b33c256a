package swarm

import (
	"context"
	"errors"
	"testing"

	"swarmbot/coop"
	"swarmbot/core"
	"swarmbot/protocol"
)

func TestIdleDeadline(t *testing.T) {
	tests := []struct {
		mode Mode
		want State
	}{
		{ModeSwarm, RandomWalk},
		{ModeChainFormation, ChainFormation},
		{ModeFollowChain, Command3},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			h := newHarness(Config{Mode: tt.mode})
			wait := h.m.Wait()
			if wait < MinIdleTicks || wait >= MinIdleTicks+RandIdleTicks {
				t.Fatalf("idle delay %d out of range", wait)
			}

			h.advance(wait - 1)
			h.step()
			if h.m.State() != Idle {
				t.Fatalf("left IDLE early: %v", h.m.State())
			}

			h.advance(1)
			h.step()
			if h.m.State() != tt.want {
				t.Errorf("state = %v, want %v", h.m.State(), tt.want)
			}
		})
	}
}

func TestPreambleStartsListening(t *testing.T) {
	h := newHarness(Config{})
	h.toListen()

	if h.m.State() != Listen {
		t.Fatalf("state = %v, want LISTEN", h.m.State())
	}
	if h.drive.calls[len(h.drive.calls)-1] != "stop" {
		t.Errorf("not stationary while listening: %v", h.drive.calls)
	}
}

func TestListenTimesOut(t *testing.T) {
	h := newHarness(Config{})
	h.toListen()
	h.hear(map[int]protocol.Message{0: protocol.MsgCommand1})
	if h.m.Tallies()[0] != 1 {
		t.Fatalf("tallies = %v", h.m.Tallies())
	}

	h.advance(ListenTicks - 1)
	h.step()
	if h.m.State() != Listen {
		t.Fatalf("left LISTEN early")
	}

	h.advance(1)
	h.step()
	if h.m.State() != RandomWalk {
		t.Fatalf("state = %v, want RANDOM_WALK", h.m.State())
	}
	if h.m.Tallies() != [3]int{} {
		t.Errorf("tallies not reset: %v", h.m.Tallies())
	}
}

// hearCommand delivers msg on n channels and then the commence marker.
func (h *harness) hearCommand(msg protocol.Message, n int) {
	in := map[int]protocol.Message{}
	for ch := 0; ch < n; ch++ {
		in[ch] = msg
	}
	h.hear(in)
	h.hear(map[int]protocol.Message{5: protocol.MsgCommence})
	h.step()
}

func TestCommandQuorum(t *testing.T) {
	tests := []struct {
		msg  protocol.Message
		want State
	}{
		{protocol.MsgCommand1, Command1},
		{protocol.MsgCommand2, Command2},
		{protocol.MsgCommand3, Command3},
	}

	for _, tt := range tests {
		t.Run(tt.msg.String()+" below quorum", func(t *testing.T) {
			h := newHarness(Config{})
			h.toListen()
			h.hearCommand(tt.msg, protocol.CommandQuorum-1)
			if h.m.State() != Listen {
				t.Errorf("state = %v, want LISTEN", h.m.State())
			}
		})

		t.Run(tt.msg.String()+" at quorum", func(t *testing.T) {
			h := newHarness(Config{})
			h.toListen()
			h.hearCommand(tt.msg, protocol.CommandQuorum)
			if h.m.State() != tt.want {
				t.Fatalf("state = %v, want %v", h.m.State(), tt.want)
			}
			if h.m.Tallies() != [3]int{} {
				t.Errorf("tallies not reset: %v", h.m.Tallies())
			}
			if wantReading := tt.want == Command3; h.link.reading != wantReading {
				t.Errorf("reading = %v, want %v", h.link.reading, wantReading)
			}
			if h.m.Leader() {
				t.Error("follower became leader")
			}
		})
	}
}

func TestQuorumAccumulatesAcrossPolls(t *testing.T) {
	h := newHarness(Config{})
	h.toListen()
	h.hear(map[int]protocol.Message{0: protocol.MsgCommand2, 1: protocol.MsgCommand2})
	h.hear(map[int]protocol.Message{3: protocol.MsgCommand2, 5: protocol.MsgCommence})
	h.step()

	if h.m.State() != Command2 {
		t.Errorf("state = %v, want COMMAND2", h.m.State())
	}
}

func TestCommandWindowExpires(t *testing.T) {
	h := newHarness(Config{})
	h.toListen()
	h.hearCommand(protocol.MsgCommand1, 3)

	h.link.signals[coop.Front] = 3800
	h.obstacle.present = true
	h.step()
	if !h.m.CloseEnough() {
		t.Fatal("proximity flag not set")
	}
	h.obstacle.present = false

	h.advance(protocol.CommandPeriod)
	h.step()

	if h.m.State() != RandomWalk {
		t.Fatalf("state = %v, want RANDOM_WALK", h.m.State())
	}
	if h.m.CloseEnough() || h.m.Leader() {
		t.Error("flags not cleared on expiry")
	}
	if !h.link.reading || h.link.beacon {
		t.Errorf("reading = %v beacon = %v after expiry", h.link.reading, h.link.beacon)
	}
	if w := h.m.Wait(); w < MinWalkTicks || w >= MinWalkTicks+RandWalkTicks {
		t.Errorf("walk budget %d out of range", w)
	}
}

func TestCommandWindowExpiresInEverySubState(t *testing.T) {
	follow := func(msg protocol.Message) func(*harness) {
		return func(h *harness) {
			h.toListen()
			h.hearCommand(msg, protocol.CommandQuorum)
		}
	}
	lead := func(h *harness) {
		h.transmitAll()
		h.advance(protocol.MessageInterval)
		h.step()
	}
	// spreadTo steps a COMMAND2 follower on to phase p.
	spreadTo := func(p coop.SpreadPhase) func(*harness) {
		return func(h *harness) {
			follow(protocol.MsgCommand2)(h)
			for _, d := range []uint32{0, coop.TurnAwayTicks, coop.ForwardTicks, 0, coop.ForwardTicks} {
				if h.m.Spread().Phase() == p {
					break
				}
				h.advance(d)
				h.step()
			}
			if p == coop.SpreadForward2 {
				h.advance(coop.ForwardTicks / 2)
				h.step()
			}
		}
	}

	tests := []struct {
		name   string
		cfg    Config
		setup  func(*harness)
		state  State
		leader bool
		spread coop.SpreadPhase
		close  bool
	}{
		{name: "command1 leader", cfg: Config{Command: 1}, setup: lead, state: Command1, leader: true},
		{name: "command2 leader", cfg: Config{Command: 2}, setup: lead, state: Command2, leader: true},
		{name: "command2 turn away", setup: spreadTo(coop.SpreadTurnAway), state: Command2, spread: coop.SpreadTurnAway},
		{name: "command2 forward 1", setup: spreadTo(coop.SpreadForward1), state: Command2, spread: coop.SpreadForward1},
		{name: "command2 reverse", setup: spreadTo(coop.SpreadReverse), state: Command2, spread: coop.SpreadReverse},
		{name: "command2 forward 2 midway", setup: spreadTo(coop.SpreadForward2), state: Command2, spread: coop.SpreadForward2},
		{name: "command2 done", setup: spreadTo(coop.SpreadDone), state: Command2, spread: coop.SpreadDone, close: true},
		{name: "command3 follower", cfg: Config{ID: 3}, setup: follow(protocol.MsgCommand3), state: Command3, close: true},
		{name: "command3 leader", cfg: Config{Command: 3}, setup: lead, state: Command3, leader: true},
		{
			name: "command3 fixed head",
			cfg:  Config{ID: 1, FixedLeader: true, Mode: ModeFollowChain},
			setup: func(h *harness) {
				h.advance(h.m.Wait())
				h.step()
			},
			state: Command3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.cfg)
			h.link.signals[coop.Front] = 3800
			tt.setup(h)

			if h.m.State() != tt.state || h.m.Leader() != tt.leader {
				t.Fatalf("state = %v leader = %v, want %v %v", h.m.State(), h.m.Leader(), tt.state, tt.leader)
			}
			if tt.state == Command2 && !tt.leader {
				if got := h.m.Spread().Phase(); got != tt.spread {
					t.Fatalf("spread phase = %v, want %v", got, tt.spread)
				}
				if want := tt.spread == coop.SpreadDone; h.m.cmd2Return != want {
					t.Fatalf("return flag = %v, want %v", h.m.cmd2Return, want)
				}
			}
			if tt.close {
				h.obstacle.present = true
				h.step()
				h.obstacle.present = false
				if !h.m.CloseEnough() {
					t.Fatal("proximity flag not set")
				}
			}

			h.advance(protocol.CommandPeriod)
			h.step()

			if h.m.State() != RandomWalk {
				t.Fatalf("state = %v, want RANDOM_WALK", h.m.State())
			}
			if h.m.leader || h.m.leaderReset || h.m.close || h.m.cmd2Return {
				t.Errorf("flags kept: leader = %v reset = %v close = %v return = %v",
					h.m.leader, h.m.leaderReset, h.m.close, h.m.cmd2Return)
			}
			if !h.link.reading || h.link.beacon {
				t.Errorf("reading = %v beacon = %v after expiry", h.link.reading, h.link.beacon)
			}
		})
	}
}

// transmitAll walks until transmitting and sends the whole budget.
func (h *harness) transmitAll() {
	h.toRandomWalk()
	h.advance(h.m.Wait())
	h.step()
	for i := 0; i < protocol.MaxSendCount; i++ {
		h.advance(protocol.MessageInterval)
		h.step()
	}
}

func TestTransmitterBecomesLeader(t *testing.T) {
	h := newHarness(Config{Command: 1})
	h.transmitAll()

	if got := h.link.count(protocol.MsgCommand1); got != protocol.MaxSendCount-1 {
		t.Errorf("sent %d commands, want %d", got, protocol.MaxSendCount-1)
	}
	if h.link.count(protocol.MsgCommence) != 1 {
		t.Errorf("commence marker not sent once: %v", h.link.count(protocol.MsgCommence))
	}
	if !h.m.Leader() || h.m.State() != Transmitting {
		t.Fatalf("leader = %v state = %v", h.m.Leader(), h.m.State())
	}

	h.advance(protocol.MessageInterval)
	h.step()
	if h.m.State() != Command1 {
		t.Fatalf("state = %v, want COMMAND1", h.m.State())
	}
	if h.link.reading || !h.link.beacon {
		t.Errorf("leader not beaconing: reading = %v beacon = %v", h.link.reading, h.link.beacon)
	}

	h.advance(protocol.CommandPeriod)
	h.step()
	if h.m.State() != RandomWalk || h.m.Leader() {
		t.Fatalf("state = %v leader = %v after expiry", h.m.State(), h.m.Leader())
	}
	lo := uint32(MinWalkTicks + protocol.LeaderBackoff)
	if w := h.m.Wait(); w < lo || w >= lo+RandWalkTicks {
		t.Errorf("leader walk budget %d, want %d..%d", w, lo, lo+RandWalkTicks)
	}
}

func TestSpreadLeaderBlinks(t *testing.T) {
	h := newHarness(Config{Command: 2})
	h.transmitAll()
	h.advance(protocol.MessageInterval)
	h.step()
	if h.m.State() != Command2 {
		t.Fatalf("state = %v, want COMMAND2", h.m.State())
	}

	h.step()
	if !h.link.beacon {
		t.Error("beacon dark during turn-away")
	}
	h.advance(3000)
	h.step()
	if h.link.beacon {
		t.Error("beacon lit while followers drive away")
	}
}

func TestBackoffAbortsTransmission(t *testing.T) {
	h := newHarness(Config{})
	h.toRandomWalk()
	h.advance(h.m.Wait())
	h.step()
	if h.m.State() != Transmitting {
		t.Fatalf("state = %v, want TRANSMITTING", h.m.State())
	}

	h.advance(protocol.MessageInterval)
	h.step()
	h.link.backoff = true
	h.step()

	if h.m.State() != RandomWalk {
		t.Errorf("state = %v, want RANDOM_WALK", h.m.State())
	}
	if h.m.sendNum != 0 {
		t.Errorf("send count %d kept after abort", h.m.sendNum)
	}
}

func TestBackoffAfterCommenceDropsLeadership(t *testing.T) {
	abort := func(t *testing.T) *harness {
		h := newHarness(Config{Command: 1})
		h.transmitAll()
		if !h.m.Leader() {
			t.Fatal("commence sent but not leader")
		}
		h.link.backoff = true
		h.step()
		h.link.backoff = false
		if h.m.State() != RandomWalk {
			t.Fatalf("state = %v, want RANDOM_WALK", h.m.State())
		}
		if h.m.leader || h.m.leaderReset {
			t.Fatalf("leader = %v reset = %v after backoff", h.m.leader, h.m.leaderReset)
		}
		return h
	}

	t.Run("follows another leader", func(t *testing.T) {
		h := abort(t)
		h.link.signals[coop.Front] = 3800
		h.link.preamble = true
		h.step()
		h.hearCommand(protocol.MsgCommand1, protocol.CommandQuorum)
		h.step()

		if h.m.State() != Command1 {
			t.Fatalf("state = %v, want COMMAND1", h.m.State())
		}
		if h.m.Leader() || h.link.beacon {
			t.Errorf("leader = %v beacon = %v, want a follower", h.m.Leader(), h.link.beacon)
		}
	})

	t.Run("next transmission starts over", func(t *testing.T) {
		h := abort(t)
		h.advance(h.m.Wait())
		h.step()
		if h.m.State() != Transmitting {
			t.Fatalf("state = %v, want TRANSMITTING", h.m.State())
		}

		sent := len(h.link.sent)
		h.advance(protocol.MessageInterval)
		h.step()
		if h.m.State() != Transmitting {
			t.Fatalf("state = %v, want TRANSMITTING", h.m.State())
		}
		if len(h.link.sent) != sent+1 || h.link.sent[sent] != protocol.MsgCommand1 {
			t.Errorf("sent %v after restart, want one COMMAND1", h.link.sent[sent:])
		}
	})
}

func TestRefusedCommenceIsRetried(t *testing.T) {
	h := newHarness(Config{Command: 1})
	h.link.refuse = protocol.MsgCommence
	h.transmitAll()

	if h.link.refused != 1 {
		t.Fatalf("commence refused %d times, want 1", h.link.refused)
	}
	if h.m.leader || h.m.leaderReset {
		t.Fatalf("leader = %v reset = %v after refused commence", h.m.leader, h.m.leaderReset)
	}
	if h.m.sendNum != protocol.MaxSendCount-1 {
		t.Errorf("send count = %d, want %d", h.m.sendNum, protocol.MaxSendCount-1)
	}

	h.link.refuse = 0
	h.advance(protocol.MessageInterval)
	h.step()
	if h.link.count(protocol.MsgCommence) != 1 || !h.m.Leader() {
		t.Errorf("commence = %d leader = %v after retry", h.link.count(protocol.MsgCommence), h.m.Leader())
	}
	if got := h.link.count(protocol.MsgCommand1); got != protocol.MaxSendCount-1 {
		t.Errorf("sent %d commands, want %d", got, protocol.MaxSendCount-1)
	}
}

func TestFixedLeaderDeployment(t *testing.T) {
	t.Run("follower never transmits", func(t *testing.T) {
		h := newHarness(Config{ID: 2, FixedLeader: true})
		h.toRandomWalk()
		h.advance(h.m.Wait() + 1)
		h.step()
		if h.m.State() != RandomWalk {
			t.Fatalf("state = %v, want RANDOM_WALK", h.m.State())
		}
		h.link.preamble = true
		h.step()
		if h.m.State() != Listen {
			t.Errorf("state = %v, want LISTEN", h.m.State())
		}
	})

	t.Run("leader never listens", func(t *testing.T) {
		h := newHarness(Config{ID: 1, FixedLeader: true})
		h.toRandomWalk()
		h.link.preamble = true
		h.step()
		if h.m.State() != RandomWalk {
			t.Fatalf("state = %v, want RANDOM_WALK", h.m.State())
		}
		h.advance(h.m.Wait())
		h.step()
		if h.m.State() != Transmitting {
			t.Errorf("state = %v, want TRANSMITTING", h.m.State())
		}
	})
}

func TestObstacleAvoidance(t *testing.T) {
	t.Run("evasive turn then stop", func(t *testing.T) {
		h := newHarness(Config{ID: 2})
		h.toRandomWalk()
		h.obstacle.present = true
		h.drive.calls = nil
		h.step()
		n := len(h.drive.calls)
		if n < 2 || h.drive.calls[n-2] != "right91" || h.drive.calls[n-1] != "stop" {
			t.Errorf("calls = %v, want right91 then stop", h.drive.calls)
		}
	})

	t.Run("evasive turn then forward as leader", func(t *testing.T) {
		h := newHarness(Config{ID: 1, FixedLeader: true})
		h.toRandomWalk()
		h.obstacle.present = true
		h.drive.calls = nil
		h.step()
		n := len(h.drive.calls)
		if n < 2 || h.drive.calls[n-2] != "right91" || h.drive.calls[n-1] != "forward:300" {
			t.Errorf("calls = %v, want right91 then forward", h.drive.calls)
		}
	})

	tests := []struct {
		name      string
		front     core.ADCValue
		wantClose bool
		reverse   bool
	}{
		{"reverse when very close", 4000, false, true},
		{"close enough", 3700, true, false},
		{"still far", 600, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(Config{})
			h.toListen()
			h.hearCommand(protocol.MsgCommand1, 3)

			h.link.signals[coop.Front] = tt.front
			h.obstacle.present = true
			h.drive.calls = nil
			h.step()

			if h.m.CloseEnough() != tt.wantClose {
				t.Errorf("close = %v, want %v", h.m.CloseEnough(), tt.wantClose)
			}
			if h.drive.has("backward:500") != tt.reverse {
				t.Errorf("calls = %v, reverse want %v", h.drive.calls, tt.reverse)
			}
			if h.drive.has("right91") {
				t.Error("evasive turn while homing")
			}
		})
	}
}

func TestChainFollowerTracksPredecessor(t *testing.T) {
	h := newHarness(Config{ID: 3, Mode: ModeFollowChain, FixedLeader: true})
	h.advance(h.m.Wait())
	h.step()
	if h.m.State() != Command3 {
		t.Fatalf("state = %v, want COMMAND3", h.m.State())
	}

	// Robot 1 is not the one to follow.
	h.drive.calls = nil
	h.hear(map[int]protocol.Message{int(coop.FrontRight): protocol.Message(1)})
	if len(h.drive.calls) != 0 {
		t.Fatalf("followed the wrong robot: %v", h.drive.calls)
	}

	h.advance(protocol.MessageInterval)
	h.hear(map[int]protocol.Message{int(coop.BackLeft): protocol.Message(2)})
	want := []string{"left:500", "stop", "forward:400"}
	if len(h.drive.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", h.drive.calls, want)
	}
	for i := range want {
		if h.drive.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", h.drive.calls, want)
		}
	}
	if h.link.count(protocol.Message(3)) != 1 {
		t.Errorf("own id not broadcast: %v", h.link.sent)
	}
}

func TestChainHeadBeaconsOne(t *testing.T) {
	h := newHarness(Config{ID: 1, Mode: ModeFollowChain, FixedLeader: true})
	h.advance(h.m.Wait())
	h.step()

	h.advance(protocol.MessageInterval)
	h.step()
	if len(h.link.sent) != 1 || h.link.sent[0] != protocol.Message(1) {
		t.Errorf("sent = %v, want [1]", h.link.sent)
	}
}

func TestChainFormationNeverExpires(t *testing.T) {
	h := newHarness(Config{Mode: ModeChainFormation})
	h.advance(h.m.Wait())
	h.step()

	h.obstacle.present = true
	for i := 0; i < 60; i++ {
		h.advance(1000)
		h.step()
	}
	if h.m.State() != ChainFormation {
		t.Errorf("state = %v, want CHAIN_FORMATION", h.m.State())
	}
	if h.drive.has("right91") {
		t.Error("obstacle avoidance ran during chain formation")
	}
	if h.link.count(protocol.MsgBeacon) == 0 {
		t.Error("no beacons sent")
	}
}

func TestTransitionsReported(t *testing.T) {
	core.ClearTransitions()
	h := newHarness(Config{})

	var got []State
	h.m.OnTransition(func(from, to State, clock uint32) {
		got = append(got, from, to)
	})
	h.toListen()

	want := []State{Idle, RandomWalk, RandomWalk, Listen}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", got, want)
		}
	}

	ring := core.Transitions()
	if len(ring) != 2 || State(ring[1].To) != Listen {
		t.Errorf("ring = %+v", ring)
	}
}

func TestRunUntilCancelled(t *testing.T) {
	h := newHarness(Config{})
	ctx, cancel := context.WithCancel(context.Background())
	h.m.OnTransition(func(from, to State, clock uint32) {
		if to == RandomWalk {
			cancel()
		}
	})

	err := h.m.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	if h.m.State() != RandomWalk {
		t.Errorf("state = %v, want RANDOM_WALK", h.m.State())
	}
	if h.drive.calls[len(h.drive.calls)-1] != "stop" {
		t.Error("wheels left running")
	}
}

func TestStateNames(t *testing.T) {
	for s := Idle; s < stateCount; s++ {
		got, ok := ParseState(s.String())
		if !ok || got != s {
			t.Errorf("ParseState(%q) = %v, %v", s.String(), got, ok)
		}
	}
	if Command2.Commanding() != true || ChainFormation.Commanding() || Listen.Commanding() {
		t.Error("Commanding() misclassifies states")
	}
}
