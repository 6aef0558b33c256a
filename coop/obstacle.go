package coop

import (
	"sync/atomic"

	"swarmbot/core"
)

const (
	// DistanceThreshold is the reading both distance sensors must reach.
	DistanceThreshold core.ADCValue = 4000

	// ObstaclePeriod is the sampling period in base ticks.
	ObstaclePeriod = 30

	obstacleReads = 3
)

// ObstacleAhead reports whether a pair of distance readings shows an
// obstacle: both sensors at or above the threshold.
func ObstacleAhead(left, right core.ADCValue) bool {
	return left >= DistanceThreshold && right >= DistanceThreshold
}

// ObstacleDetector lights the distance emitter, samples the two distance
// photodiodes and republishes a boolean every period. Nothing accumulates
// between periods.
type ObstacleDetector struct {
	adc      core.ADCDriver
	emitter  core.SignalEmitter
	chans    [2]core.ADCChannelID
	readings [2]core.ADCValue
	present  atomic.Bool
}

// NewObstacleDetector configures the left and right distance channels.
func NewObstacleDetector(adc core.ADCDriver, emitter core.SignalEmitter, left, right core.ADCChannelID) (*ObstacleDetector, error) {
	d := &ObstacleDetector{adc: adc, emitter: emitter, chans: [2]core.ADCChannelID{left, right}}
	if err := core.ConfigureChannels(adc, d.chans[:]); err != nil {
		return nil, err
	}
	emitter.Drive(false)
	return d, nil
}

// Attach registers Sample on the obstacle timer.
func (d *ObstacleDetector) Attach(clock core.PeriodicClock) error {
	return clock.Init(core.TimerObstacle, ObstaclePeriod, d.Sample)
}

// Sample runs one burst. The first reads settle the photodiodes after the
// emitter turns on; only the last one counts.
func (d *ObstacleDetector) Sample() {
	d.emitter.Drive(true)
	for i := 0; i < obstacleReads; i++ {
		core.SampleSet(d.adc, d.chans[:], d.readings[:])
	}
	d.emitter.Drive(false)

	d.present.Store(ObstacleAhead(d.readings[0], d.readings[1]))
}

// Present reports the result of the latest burst.
func (d *ObstacleDetector) Present() bool {
	return d.present.Load()
}
