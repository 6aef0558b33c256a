//go:build rp2040

// Package pio drives the signal emitters from a PIO state machine so a level
// change lands on every emitter pin in the same clock cycle.
package pio

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

var (
	ErrNoStateMachine  = errors.New("pio: no free state machine")
	ErrPinsNotInOrder  = errors.New("pio: emitter pins must be consecutive")
	ErrTooManyEmitters = errors.New("pio: at most 5 emitter pins")
)

// maxEmitterPins caps the OUT pin group written by `out pins`. Five pins is
// a limit this driver sets, well under what the OUT group can span.
const maxEmitterPins = 5

// PIO program for emitter levels
// Each FIFO word is a pin mask for the group. The state machine blocks on
// the FIFO, so the pins hold their level between writes.
//
// buildEmitterProgram creates the emitter PIO program using AssemblerV0
func buildEmitterProgram(width uint8) []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),              // 0: pull block
		asm.Out(rp2pio.OutDestPins, width).Encode(), // 1: out pins, width
		// .wrap
	}
}

var (
	// RP2040 has 2 PIO blocks (PIO0, PIO1) with 4 state machines each
	pioAllocations = [2][4]bool{} // [pioNum][smNum]
)

// allocatePIO allocates the first free state machine.
// Returns (pioNum, smNum, ok)
func allocatePIO() (uint8, uint8, bool) {
	for pioNum := uint8(0); pioNum < 2; pioNum++ {
		for smNum := uint8(0); smNum < 4; smNum++ {
			if !pioAllocations[pioNum][smNum] {
				pioAllocations[pioNum][smNum] = true
				return pioNum, smNum, true
			}
		}
	}
	return 0, 0, false
}

// Emitter implements core.SignalEmitter for a group of consecutive pins.
type Emitter struct {
	pio   *rp2pio.PIO
	sm    rp2pio.StateMachine
	base  machine.Pin
	width uint8
	mask  uint32
	level bool
}

// NewEmitter claims a state machine and drives pins low.
func NewEmitter(pins []uint32) (*Emitter, error) {
	if len(pins) == 0 || len(pins) > maxEmitterPins {
		return nil, ErrTooManyEmitters
	}
	for i := 1; i < len(pins); i++ {
		if pins[i] != pins[0]+uint32(i) {
			return nil, ErrPinsNotInOrder
		}
	}

	pioNum, smNum, ok := allocatePIO()
	if !ok {
		return nil, ErrNoStateMachine
	}
	pioHW := rp2pio.PIO0
	if pioNum == 1 {
		pioHW = rp2pio.PIO1
	}

	e := &Emitter{
		pio:   pioHW,
		sm:    pioHW.StateMachine(smNum),
		base:  machine.Pin(pins[0]),
		width: uint8(len(pins)),
		mask:  1<<len(pins) - 1,
	}
	if err := e.init(); err != nil {
		pioAllocations[pioNum][smNum] = false
		return nil, err
	}
	return e, nil
}

func (e *Emitter) init() error {
	// CRITICAL: Claim the state machine first!
	e.sm.TryClaim()

	program := buildEmitterProgram(e.width)
	offset, err := e.pio.AddProgram(program, -1)
	if err != nil {
		return err
	}

	for i := uint8(0); i < e.width; i++ {
		(e.base + machine.Pin(i)).Configure(machine.PinConfig{Mode: e.pio.PinMode()})
	}

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetOutPins(e.base, e.width)

	// Shift right, explicit PULL, 32-bit threshold
	cfg.SetOutShift(true, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(1, 0)

	// Initialize state machine FIRST
	e.sm.Init(offset, cfg)

	// THEN set pin directions (must be after Init!)
	e.sm.SetPindirsConsecutive(e.base, e.width, true)
	e.sm.SetPinsConsecutive(e.base, e.width, false)

	e.sm.SetEnabled(true)
	return nil
}

// Drive sets every emitter pin of the group to on.
func (e *Emitter) Drive(on bool) {
	e.level = on
	word := uint32(0)
	if on {
		word = e.mask
	}

	// The program drains the FIFO within a few cycles.
	for e.sm.IsTxFIFOFull() {
	}
	e.sm.TxPut(word)
}

// Level returns the last driven level.
func (e *Emitter) Level() bool {
	return e.level
}
