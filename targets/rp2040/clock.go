//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerALARM1   = timerBase + 0x14 // Alarm 1 target, low word
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
	timerINTR     = timerBase + 0x34 // Raw interrupts, write 1 to clear
	timerINTE     = timerBase + 0x38 // Interrupt enable
)

// tickAlarm is the alarm used for the base tick. Alarm 0 belongs to the
// runtime's sleep implementation.
const tickAlarm = 1

// tickUS is one base tick: one half-symbol of the optical protocol.
const tickUS = 1000

var (
	timerRAWL   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	timerAlarm1 = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM1)))
	timerIntr   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))

	nextAlarm uint32
)

// GetHardwareTime reads the low 32 bits of the 1 MHz hardware timer.
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// startTicker arms alarm 1 to fire every tickUS and advances the scheduler
// from its interrupt.
func startTicker() {
	intr := interrupt.New(rp.IRQ_TIMER_IRQ_1, timerISR)

	nextAlarm = GetHardwareTime() + tickUS
	timerAlarm1.Set(nextAlarm)
	timerInte.SetBits(1 << tickAlarm)
	intr.Enable()
}

func timerISR(interrupt.Interrupt) {
	timerIntr.Set(1 << tickAlarm)

	// Re-arm from the previous target so the tick does not drift.
	nextAlarm += tickUS
	timerAlarm1.Set(nextAlarm)

	sched.Advance()
}
