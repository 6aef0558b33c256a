package core

import "sync/atomic"

// Clocks holds the two free-running tick counters used by the coordination
// logic. Both are incremented once per base tick from the clock timer and can
// be reset independently from the control loop. A third counter, the uptime,
// is never reset.
type Clocks struct {
	phase   atomic.Uint32
	command atomic.Uint32
	uptime  atomic.Uint32
}

// Tick advances the counters. Called from the periodic clock.
func (c *Clocks) Tick() {
	c.phase.Add(1)
	c.command.Add(1)
	c.uptime.Add(1)
}

// Uptime returns ticks since start.
func (c *Clocks) Uptime() uint32 {
	return c.uptime.Load()
}

// Phase returns ticks since the last ResetPhase.
func (c *Clocks) Phase() uint32 {
	return c.phase.Load()
}

// Command returns ticks since the last ResetCommand.
func (c *Clocks) Command() uint32 {
	return c.command.Load()
}

// ResetPhase restarts the phase counter from zero.
func (c *Clocks) ResetPhase() {
	c.phase.Store(0)
}

// ResetCommand restarts the command counter from zero.
func (c *Clocks) ResetCommand() {
	c.command.Store(0)
}
