//go:build rp2040

package main

import (
	"machine"
)

// InitUSB initializes USB serial communication
// TinyGo automatically sets up USB CDC-ACM on RP2040
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// writeLine sends one telemetry line to the host.
func writeLine(s string) {
	machine.Serial.Write([]byte(s))
	machine.Serial.Write([]byte("\r\n"))
}
