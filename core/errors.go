package core

import "errors"

// Static configuration errors. These are returned at initialization and keep
// the affected subsystem from starting.
var (
	ErrInvalidTimer       = errors.New("invalid timer id")
	ErrTimerInUse         = errors.New("timer already initialized")
	ErrTimerNotConfigured = errors.New("timer not initialized")
	ErrInvalidPeriod      = errors.New("timer period must be non-zero")
	ErrInvalidChannel     = errors.New("invalid analog channel")
	ErrInvalidPin         = errors.New("invalid pin")
	ErrInvalidServo       = errors.New("invalid servo channel")
)
