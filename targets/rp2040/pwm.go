//go:build rp2040

package main

import (
	"machine"

	"swarmbot/core"

	"tinygo.org/x/drivers/servo"
)

// pwmPeripheral is an interface for PWM hardware peripherals
// This abstracts over TinyGo's unexported *pwmGroup type
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// RP2040ServoDriver implements core.ServoDriver on the hardware PWM slices.
// Each wheel is a continuous-rotation servo driven at 50 Hz.
type RP2040ServoDriver struct {
	pins   [core.ServoCount]machine.Pin
	servos [core.ServoCount]servo.Servo
	ready  [core.ServoCount]bool
}

// NewRP2040ServoDriver creates a servo driver for the left and right wheel
// pins.
func NewRP2040ServoDriver(left, right machine.Pin) *RP2040ServoDriver {
	return &RP2040ServoDriver{
		pins: [core.ServoCount]machine.Pin{core.ServoLeft: left, core.ServoRight: right},
	}
}

// ConfigureServo binds a wheel to the PWM slice of its pin.
func (d *RP2040ServoDriver) ConfigureServo(ch core.ServoChannel) error {
	if ch >= core.ServoCount {
		return core.ErrInvalidServo
	}
	if d.ready[ch] {
		return nil
	}

	pin := d.pins[ch]
	// RP2040: GPIO pin N maps to slice (N >> 1) & 0x7
	pwm := getPWMPeripheral(uint8((uint32(pin) >> 1) & 0x7))

	s, err := servo.New(pwm, pin)
	if err != nil {
		return err
	}
	d.servos[ch] = s
	d.ready[ch] = true
	return nil
}

// SetPulse sets the pulse width in microseconds.
func (d *RP2040ServoDriver) SetPulse(ch core.ServoChannel, us uint16) error {
	if ch >= core.ServoCount || !d.ready[ch] {
		return core.ErrInvalidServo
	}
	d.servos[ch].SetMicroseconds(int16(us))
	return nil
}

// getPWMPeripheral returns the PWM peripheral for a given slice number
// RP2040 has 8 PWM slices: PWM0-PWM7
func getPWMPeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	case 7:
		return machine.PWM7
	default:
		// Should never happen with proper masking
		return machine.PWM0
	}
}
