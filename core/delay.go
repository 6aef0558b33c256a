package core

import "time"

// Delayer blocks the control loop for a number of milliseconds.
// The periodic clock keeps running while the caller is blocked.
type Delayer interface {
	Sleep(ms uint32)
}

// SleepDelayer blocks using the runtime scheduler.
type SleepDelayer struct{}

func (SleepDelayer) Sleep(ms uint32) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}
