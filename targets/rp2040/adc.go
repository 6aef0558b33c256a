//go:build rp2040

package main

import (
	"machine"

	"swarmbot/core"

	"tinygo.org/x/drivers/mcp3008"
)

// mcp3008Channels is the number of single-ended inputs on the converter.
const mcp3008Channels = 8

// MCP3008Driver implements core.ADCDriver on an external MCP3008 converter.
// The six signal photodiodes and the two distance photodiodes share it.
// Only the tick handler samples, so reads are not locked.
type MCP3008Driver struct {
	busID uint8
	cs    machine.Pin
	dev   *mcp3008.Device

	configured [mcp3008Channels]bool
}

// NewMCP3008Driver constructs the driver but does not Init() it yet.
func NewMCP3008Driver(busID uint8, cs machine.Pin) *MCP3008Driver {
	return &MCP3008Driver{busID: busID, cs: cs}
}

// Init configures the SPI bus and the chip select pin.
func (d *MCP3008Driver) Init() error {
	spi, err := configureSPI(d.busID)
	if err != nil {
		return err
	}
	d.dev = mcp3008.New(spi, d.cs)
	d.dev.Configure()
	return nil
}

// ConfigureChannel marks a converter input as in use.
func (d *MCP3008Driver) ConfigureChannel(ch core.ADCChannelID) error {
	if int(ch) >= mcp3008Channels {
		return core.ErrInvalidChannel
	}
	d.configured[ch] = true
	return nil
}

// ReadRaw returns a 12-bit value (0-4095). The driver scales the 10-bit
// conversion to 16 bits; the low four bits are dropped.
func (d *MCP3008Driver) ReadRaw(ch core.ADCChannelID) (core.ADCValue, error) {
	if int(ch) >= mcp3008Channels || !d.configured[ch] {
		return core.ADCFault, core.ErrInvalidChannel
	}
	raw16, err := d.dev.Read(int(ch))
	if err != nil {
		return core.ADCFault, err
	}
	return core.ADCValue(raw16 >> 4), nil
}
