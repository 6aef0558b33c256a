package coop

import (
	"context"

	"swarmbot/core"
)

// SearchResult is the outcome of a bounded signal search.
type SearchResult uint8

const (
	SearchFound SearchResult = iota
	SearchCancelled
	SearchTimedOut
)

func (r SearchResult) String() string {
	switch r {
	case SearchFound:
		return "found"
	case SearchCancelled:
		return "cancelled"
	case SearchTimedOut:
		return "timed-out"
	}
	return "unknown"
}

const (
	// DefaultSearchTimeout bounds a signal search, in ticks.
	DefaultSearchTimeout = 20000

	// WindowPollMS spaces the snapshots of a search or sampling window.
	WindowPollMS = 10

	searchKickMS   = 200
	searchSettleMS = 20
)

// SearchSignal kicks the robot left, then rotates slowly right until any
// sensor sees a signal. It gives up when ctx is cancelled or after timeout
// ticks, and always leaves the wheels stopped.
func (r *Robot) SearchSignal(ctx context.Context, timeout uint32) SearchResult {
	defer r.Drive.Stop()

	r.Drive.RotateLeft(TurnSpeed)
	r.Delay.Sleep(searchKickMS)
	r.Drive.Stop()
	r.Delay.Sleep(searchSettleMS)

	start := r.Clock.Uptime()
	r.Drive.RotateRight(SearchSpeed)
	for {
		s := r.ReadSignals()
		if s.Any() {
			return SearchFound
		}
		if ctx.Err() != nil {
			return SearchCancelled
		}
		if r.Clock.Uptime()-start >= timeout {
			return SearchTimedOut
		}
		r.Delay.Sleep(WindowPollMS)
	}
}

// MaxOverWindow takes n snapshots WindowPollMS apart and returns the largest
// amplitude seen by each sensor. A cancelled ctx ends the window early.
func (r *Robot) MaxOverWindow(ctx context.Context, n int) Signals {
	var best Signals
	for i := range best {
		best[i] = core.ADCFault
	}
	for i := 0; i < n; i++ {
		s := r.ReadSignals()
		for p, v := range s {
			if v > best[p] {
				best[p] = v
			}
		}
		if ctx.Err() != nil {
			break
		}
		r.Delay.Sleep(WindowPollMS)
	}
	return best
}
