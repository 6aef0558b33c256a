package core

// ServoChannel identifies one of the two wheel servos.
type ServoChannel uint8

const (
	ServoLeft ServoChannel = iota
	ServoRight
	ServoCount
)

// Continuous-rotation servo pulse limits in microseconds.
const (
	ServoNeutralUS = 1500
	ServoMinUS     = 1000
	ServoMaxUS     = 2000

	// ServoSpeedMax is the speed that maps to ServoMaxUS.
	ServoSpeedMax = 1000
)

// ServoDriver is the abstract servo output interface that core code uses.
// Platform-specific implementations handle the PWM hardware.
type ServoDriver interface {
	// ConfigureServo prepares the PWM output for a servo channel at 50 Hz,
	// parked at ServoNeutralUS.
	ConfigureServo(ch ServoChannel) error

	// SetPulse sets the high time of the servo signal in microseconds.
	SetPulse(ch ServoChannel, us uint16) error
}

// Global singleton used by target code.
var servoDriver ServoDriver

// SetServoDriver is called by target-specific code to register its driver.
func SetServoDriver(d ServoDriver) {
	servoDriver = d
}

// MustServo returns the configured driver or panics if missing.
func MustServo() ServoDriver {
	if servoDriver == nil {
		panic("servo driver not configured")
	}
	return servoDriver
}

// ServoPulse converts a signed speed (-ServoSpeedMax..ServoSpeedMax, 0 = stop)
// into a pulse width, clamped to the servo limits.
func ServoPulse(speed int) uint16 {
	us := ServoNeutralUS + speed*(ServoMaxUS-ServoNeutralUS)/ServoSpeedMax
	if us < ServoMinUS {
		us = ServoMinUS
	}
	if us > ServoMaxUS {
		us = ServoMaxUS
	}
	return uint16(us)
}
