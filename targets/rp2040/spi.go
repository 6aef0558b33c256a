//go:build rp2040

package main

import (
	"errors"
	"machine"
)

// RP2040 SPI bus configurations the sampler can be wired to.
type spiBusConfig struct {
	spi  *machine.SPI // SPI controller (SPI0 or SPI1)
	sck  machine.Pin  // Clock pin
	mosi machine.Pin  // Master Out Slave In
	miso machine.Pin  // Master In Slave Out
	name string       // Human-readable name
}

var rp2040SPIBuses = map[uint8]spiBusConfig{
	0: {spi: machine.SPI0, sck: machine.GPIO18, mosi: machine.GPIO19, miso: machine.GPIO16, name: "spi0c"},
	1: {spi: machine.SPI1, sck: machine.GPIO10, mosi: machine.GPIO11, miso: machine.GPIO12, name: "spi1d"},
}

// sampleBus is the bus the MCP3008 sits on.
const sampleBus = 0

// spiRate is fast enough to read eight channels well inside one tick.
const spiRate = 2000000

// configureSPI sets up a hardware SPI bus in mode 0.
func configureSPI(busID uint8) (*machine.SPI, error) {
	busConfig, exists := rp2040SPIBuses[busID]
	if !exists {
		return nil, errors.New("invalid SPI bus ID")
	}

	spi := busConfig.spi
	err := spi.Configure(machine.SPIConfig{
		Frequency: spiRate,
		SCK:       busConfig.sck,
		SDO:       busConfig.mosi, // SDO = Serial Data Out (MOSI)
		SDI:       busConfig.miso, // SDI = Serial Data In (MISO)
		Mode:      0,
	})
	if err != nil {
		return nil, err
	}
	return spi, nil
}
