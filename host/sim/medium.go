package sim

import (
	"math"

	"swarmbot/coop"
	"swarmbot/core"
)

// Physical model, lengths in centimetres.
const (
	RobotRadius = 5.0
	WheelBase   = 8.0

	// SignalRange is the distance at which a head-on signal falls to half
	// scale.
	SignalRange = 80.0

	// ReflectRange is the same for the distance sensors' reflected light.
	// Both distance readings cross the obstacle threshold a few centimetres
	// from a wall.
	ReflectRange = 20.0

	// ReflectCone is the half-angle in which another robot reflects.
	ReflectCone = 25 * math.Pi / 180

	// AmbientLevel is what a photodiode reads with nothing lit.
	AmbientLevel = 20

	fullScale = 4095
)

// cmPerSpeed converts a drive speed to wheel surface speed in cm/s so that
// the default calibration's right 91° turn really turns 91°.
var cmPerSpeed = (91 * math.Pi / 180) * (WheelBase / 2) /
	(0.855 * float64(core.Rotate91RightSpeed))

// sensorAngle is each position's bearing from the robot's heading,
// counter-clockwise.
var sensorAngle = [coop.PositionCount]float64{
	coop.Front:      0,
	coop.FrontRight: -math.Pi / 3,
	coop.BackRight:  -2 * math.Pi / 3,
	coop.Back:       math.Pi,
	coop.BackLeft:   2 * math.Pi / 3,
	coop.FrontLeft:  math.Pi / 3,
}

// falloff is the inverse-square style attenuation, 1 at distance zero.
func falloff(d, r0 float64) float64 {
	return r0 * r0 / (r0*r0 + d*d)
}

func clampADC(v float64) core.ADCValue {
	if v > fullScale {
		return fullScale
	}
	if v < 0 {
		return 0
	}
	return core.ADCValue(v)
}

// signalAt returns what sensor p of robot i reads given the committed
// emitter levels.
func (w *World) signalAt(i int, p coop.Position) core.ADCValue {
	me := w.bots[i]
	sum := float64(AmbientLevel)
	for j, other := range w.bots {
		if j == i || !w.levels[j] {
			continue
		}
		dx, dy := other.X-me.X, other.Y-me.Y
		d := math.Hypot(dx, dy)
		c := math.Cos(math.Atan2(dy, dx) - me.Heading - sensorAngle[p])
		if c <= 0 {
			continue
		}
		sum += fullScale * c * falloff(d, SignalRange)
	}
	return clampADC(sum)
}

// reflectionAt returns the distance sensors' reading for robot i.
func (w *World) reflectionAt(i int) core.ADCValue {
	me := w.bots[i]
	d := w.wallDistance(me) - RobotRadius

	for j, other := range w.bots {
		if j == i {
			continue
		}
		dx, dy := other.X-me.X, other.Y-me.Y
		off := math.Remainder(math.Atan2(dy, dx)-me.Heading, 2*math.Pi)
		if math.Abs(off) > ReflectCone {
			continue
		}
		if gap := math.Hypot(dx, dy) - 2*RobotRadius; gap < d {
			d = gap
		}
	}
	if d < 0 {
		d = 0
	}
	return clampADC(AmbientLevel + fullScale*falloff(d, ReflectRange))
}

// wallDistance casts a ray from the robot's centre along its heading and
// returns the distance to the first wall.
func (w *World) wallDistance(b *Bot) float64 {
	cx, cy := math.Cos(b.Heading), math.Sin(b.Heading)
	d := math.Inf(1)
	if cx > 1e-9 {
		d = math.Min(d, (w.arena.Width-b.X)/cx)
	} else if cx < -1e-9 {
		d = math.Min(d, -b.X/cx)
	}
	if cy > 1e-9 {
		d = math.Min(d, (w.arena.Height-b.Y)/cy)
	} else if cy < -1e-9 {
		d = math.Min(d, -b.Y/cy)
	}
	return d
}

// move integrates one tick of differential-drive motion and keeps the robot
// inside the arena.
func (w *World) move(b *Bot, dt float64) {
	vl := float64(pulseSpeed(b.pulse[core.ServoLeft])) * cmPerSpeed
	vr := -float64(pulseSpeed(b.pulse[core.ServoRight])) * cmPerSpeed

	v := (vl + vr) / 2
	omega := (vr - vl) / WheelBase

	b.X += v * math.Cos(b.Heading) * dt
	b.Y += v * math.Sin(b.Heading) * dt
	b.Heading = math.Remainder(b.Heading+omega*dt, 2*math.Pi)

	b.X = math.Max(RobotRadius, math.Min(w.arena.Width-RobotRadius, b.X))
	b.Y = math.Max(RobotRadius, math.Min(w.arena.Height-RobotRadius, b.Y))
}

// pulseSpeed inverts core.ServoPulse.
func pulseSpeed(us uint16) int {
	if us == 0 {
		return 0
	}
	return (int(us) - core.ServoNeutralUS) * core.ServoSpeedMax / (core.ServoMaxUS - core.ServoNeutralUS)
}
