//go:build tinygo

package core

import "runtime/interrupt"

type criticalState = interrupt.State

// enterCritical masks interrupts so the timer list is not modified by the
// alarm handler while the control loop edits it.
func enterCritical() criticalState {
	return interrupt.Disable()
}

func exitCritical(state criticalState) {
	interrupt.Restore(state)
}
