package core

// GPIOPin identifies a hardware GPIO pin number
type GPIOPin uint32

// GPIODriver is the abstract GPIO interface that core code uses.
// Platform-specific implementations handle actual hardware control.
type GPIODriver interface {
	// ConfigureOutput configures a pin as a digital output
	// Returns error if pin is invalid or already in use
	ConfigureOutput(pin GPIOPin) error

	// SetPin sets the pin to high (true) or low (false)
	SetPin(pin GPIOPin, value bool) error
}

// Global singleton used by target code.
var gpioDriver GPIODriver

// SetGPIODriver is called by target-specific code to register its driver.
func SetGPIODriver(d GPIODriver) {
	gpioDriver = d
}

// MustGPIO returns the configured driver or panics if missing.
func MustGPIO() GPIODriver {
	if gpioDriver == nil {
		panic("GPIO driver not configured")
	}
	return gpioDriver
}

// SignalEmitter switches an infrared emitter (or a group of them) on or off.
type SignalEmitter interface {
	Drive(on bool)
}

// PinEmitter drives every pin of a group to the same level.
type PinEmitter struct {
	gpio  GPIODriver
	pins  []GPIOPin
	level bool
}

// NewPinEmitter configures pins as outputs, driven low.
func NewPinEmitter(gpio GPIODriver, pins ...GPIOPin) (*PinEmitter, error) {
	for _, pin := range pins {
		if err := gpio.ConfigureOutput(pin); err != nil {
			return nil, err
		}
		if err := gpio.SetPin(pin, false); err != nil {
			return nil, err
		}
	}
	return &PinEmitter{gpio: gpio, pins: pins}, nil
}

// Drive sets the level of every pin in the group.
// Write errors are ignored; the next tick drives the pins again.
func (e *PinEmitter) Drive(on bool) {
	e.level = on
	for _, pin := range e.pins {
		_ = e.gpio.SetPin(pin, on)
	}
}

// Level returns the last driven level.
func (e *PinEmitter) Level() bool {
	return e.level
}
