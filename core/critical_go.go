//go:build !tinygo

package core

// criticalState is a placeholder for interrupt state on regular Go.
type criticalState uintptr

// enterCritical is a no-op on regular Go, where the simulator and tests
// drive the scheduler from a single goroutine.
func enterCritical() criticalState {
	return 0
}

func exitCritical(state criticalState) {}
