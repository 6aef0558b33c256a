package coop

import (
	"context"

	"swarmbot/protocol"
)

// Role is a robot's place in a chain.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleFront
	RoleMiddle
	RoleBack
)

func (r Role) String() string {
	switch r {
	case RoleFront:
		return "FRONT"
	case RoleMiddle:
		return "MIDDLE"
	case RoleBack:
		return "BACK"
	}
	return "UNKNOWN"
}

// Chain formation parameters. Durations are in ticks (milliseconds).
const (
	ChainWindow = 50 // Beacon receptions per classification
	ChainSeen   = 10 // Beacons from one side meaning "someone is there"
	ChainUnseen = 5  // Beacons from one side meaning "nobody is there"

	ChainExitTicks     = 2000
	ChainParallelTicks = 5000
	ChainCooldown      = 3*ChainExitTicks + ChainParallelTicks

	PassFrontSamples = ChainWindow + 1
	PassFrontMargin  = 100
	PassFrontTimeout = 20000
	SettleMS         = 500

	AdvanceSamples  = 21
	AdvanceBalance  = 50
	AdvanceMinTicks = ChainExitTicks - 500
	AdvanceMaxTicks = ChainExitTicks + 500

	AlignSamples = 21
	AlignMargin  = 1000
	AlignSlack   = 100
	AlignSpeed   = 100
)

// Classify derives a role from the beacon counts of one window.
func Classify(front, back int) Role {
	switch {
	case front >= ChainSeen && back >= ChainSeen:
		return RoleMiddle
	case front >= ChainSeen && back < ChainUnseen:
		return RoleBack
	case front < ChainUnseen && back >= ChainSeen:
		return RoleFront
	}
	return RoleUnknown
}

// Chain lines robots up. Every robot beacons; each counts the beacons seen by
// its front and back sensors over a window and classifies itself. The robot
// at the back waits out a cooldown, then drives around the line to become
// the new front.
type Chain struct {
	role     Role
	front    int
	back     int
	count    int
	cooldown bool
	moving   bool
	repo     Reposition
	inbox    protocol.Inbox
}

// Start resets the classifier.
func (c *Chain) Start() {
	*c = Chain{cooldown: true}
}

// Role returns the current classification.
func (c *Chain) Role() Role {
	return c.role
}

// Repositioning reports whether the robot is driving to the front.
func (c *Chain) Repositioning() bool {
	return c.moving
}

// Reposition returns the reposition sub-machine.
func (c *Chain) Reposition() *Reposition {
	return &c.repo
}

// Step runs one control-loop iteration. It returns true when the role
// changed.
func (c *Chain) Step(ctx context.Context, r *Robot) bool {
	if c.role == RoleBack && c.cooldown && r.Clock.Phase() >= ChainCooldown {
		c.cooldown = false
	}

	if c.moving {
		if !c.repo.Step(ctx, r) {
			return false
		}
		c.moving = false
		c.role = RoleFront
		r.Clock.ResetCommand()
		r.Drive.Stop()
		return true
	}

	changed := false
	if r.Link.Messages(&c.inbox) {
		if m, ok := c.inbox.Get(int(Front)); ok && m == protocol.MsgBeacon {
			c.front++
		}
		if m, ok := c.inbox.Get(int(Back)); ok && m == protocol.MsgBeacon {
			c.back++
		}
		c.count++
	}

	if c.count >= ChainWindow {
		if role := Classify(c.front, c.back); role != c.role {
			c.role = role
			changed = true
			if role == RoleBack {
				c.cooldown = true
				r.Clock.ResetPhase()
			}
		}
		c.front, c.back, c.count = 0, 0, 0
	}

	if r.Clock.Command() >= protocol.MessageInterval {
		_ = r.Link.Send(protocol.MsgBeacon)
		r.Clock.ResetCommand()
	}

	if c.role == RoleBack && !c.cooldown {
		c.moving = true
		c.repo.Start(r)
		return changed
	}

	r.Drive.Stop()
	return changed
}

// RepositionPhase is the sub-state of the drive to the front of the line.
type RepositionPhase uint8

const (
	RepoExit RepositionPhase = iota
	RepoParallel
	RepoPassFront
	RepoAdvance
	RepoAlign
	RepoDone
)

func (p RepositionPhase) String() string {
	switch p {
	case RepoExit:
		return "EXIT"
	case RepoParallel:
		return "PARALLEL"
	case RepoPassFront:
		return "PASS_FRONT"
	case RepoAdvance:
		return "ADVANCE"
	case RepoAlign:
		return "ALIGN"
	case RepoDone:
		return "DONE"
	}
	return "UNKNOWN"
}

// Reposition steps out of the line to the right, drives along it until the
// left sensors show the old front robot behind, turns in and aligns. The
// timed legs do not block; each amplitude comparison blocks for one sampling
// window.
type Reposition struct {
	phase    RepositionPhase
	start    uint32
	timedOut bool
}

// Start turns out of the line and begins the exit leg.
func (p *Reposition) Start(r *Robot) {
	*p = Reposition{}
	r.Drive.RotateRight91()
	r.Drive.Forward(MoveSpeed)
	p.enter(r, RepoExit)
}

// Phase returns the current sub-state.
func (p *Reposition) Phase() RepositionPhase {
	return p.phase
}

// TimedOut reports whether the pass-front search gave up.
func (p *Reposition) TimedOut() bool {
	return p.timedOut
}

func (p *Reposition) enter(r *Robot, phase RepositionPhase) {
	p.phase = phase
	p.start = r.Clock.Uptime()
}

// Step advances the reposition. It returns true once the robot is aligned at
// the front of the line.
func (p *Reposition) Step(ctx context.Context, r *Robot) bool {
	elapsed := r.Clock.Uptime() - p.start

	switch p.phase {
	case RepoExit:
		if elapsed >= ChainExitTicks {
			r.Drive.RotateLeft91()
			r.Drive.Forward(MoveSpeed)
			p.enter(r, RepoParallel)
		}

	case RepoParallel:
		if elapsed >= ChainParallelTicks {
			p.enter(r, RepoPassFront)
		}

	case RepoPassFront:
		w := r.MaxOverWindow(ctx, PassFrontSamples)
		passed := w[BackLeft] >= w[FrontLeft]+PassFrontMargin
		if !passed && r.Clock.Uptime()-p.start >= PassFrontTimeout {
			p.timedOut = true
			passed = true
		}
		if passed {
			r.Delay.Sleep(SettleMS)
			r.Drive.RotateLeft91()
			r.Drive.Forward(MoveSpeed)
			r.Clock.ResetPhase()
			p.enter(r, RepoAdvance)
		}

	case RepoAdvance:
		t := r.Clock.Phase()
		w := r.MaxOverWindow(ctx, AdvanceSamples)
		diff := w[BackLeft] - w[FrontLeft]
		if diff < 0 {
			diff = -diff
		}
		if (diff <= AdvanceBalance && t >= AdvanceMinTicks) || t >= AdvanceMaxTicks {
			r.Clock.ResetPhase()
			r.Drive.RotateRight(AlignSpeed)
			p.enter(r, RepoAlign)
		}

	case RepoAlign:
		t := r.Clock.Phase()
		w := r.MaxOverWindow(ctx, AlignSamples)
		rot := r.Cal.RotateRight91MS
		if (w[Back] >= w[BackLeft]+AlignMargin && t+AlignSlack >= rot) || t >= rot+AlignSlack {
			r.Drive.Stop()
			p.enter(r, RepoDone)
			return true
		}

	case RepoDone:
		return true
	}
	return false
}
