package sim

import (
	"fmt"
	"io"

	"swarmbot/protocol"
)

// Report summarizes a run.
type Report struct {
	RunID    string
	Scenario string
	Ticks    uint32
	Robots   []RobotReport
}

// RobotReport is one robot's end state.
type RobotReport struct {
	ID          uint8
	State       string
	Leader      bool
	X, Y        float64
	Heading     float64
	Stats       protocol.Stats
	Transitions []Transition
}

// Report snapshots the world.
func (w *World) Report() *Report {
	r := &Report{RunID: w.runID, Scenario: w.scenario, Ticks: w.now}
	for _, b := range w.bots {
		r.Robots = append(r.Robots, RobotReport{
			ID:          b.cfg.ID,
			State:       b.machine.State().String(),
			Leader:      b.machine.Leader(),
			X:           b.X,
			Y:           b.Y,
			Heading:     b.Heading,
			Stats:       b.link.Stats(),
			Transitions: append([]Transition(nil), b.history...),
		})
	}
	return r
}

// Write prints the per-robot transition history and final states.
func (r *Report) Write(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "run %s  scenario %q  ticks %d\n", r.RunID, r.Scenario, r.Ticks); err != nil {
		return err
	}
	for _, rb := range r.Robots {
		role := ""
		if rb.Leader {
			role = " (leader)"
		}
		fmt.Fprintf(w, "\nrobot %d: %s%s at (%.1f, %.1f)\n", rb.ID, rb.State, role, rb.X, rb.Y)
		fmt.Fprintf(w, "  sent=%d decoded=%d preambles=%d aborted=%d backoffs=%d\n",
			rb.Stats.Sent, rb.Stats.Decoded, rb.Stats.Preambles, rb.Stats.Aborted, rb.Stats.Backoffs)
		for _, t := range rb.Transitions {
			if _, err := fmt.Fprintf(w, "  %8d  %-16s -> %s\n", t.Tick, t.From, t.To); err != nil {
				return err
			}
		}
	}
	return nil
}
