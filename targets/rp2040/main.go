//go:build rp2040

package main

import (
	"context"
	_ "embed"
	"machine"
	"time"

	"swarmbot/config"
	"swarmbot/coop"
	"swarmbot/core"
	"swarmbot/protocol"
	"swarmbot/swarm"
	"swarmbot/targets/pio"
)

//go:embed robot.json
var robotJSON []byte

// statsInterval is how often the transceiver counters are reported.
const statsInterval = 2 * time.Second

var (
	// sched is advanced by the alarm interrupt, one call per base tick.
	sched  core.Scheduler
	clocks core.Clocks
)

func main() {
	// CRITICAL: Disable watchdog on boot to clear any previous state
	// This prevents issues with watchdog persisting across resets
	err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0})
	if err != nil {
		return
	}

	// Initialize USB CDC immediately
	InitUSB()
	core.SetDebugWriter(writeLine)
	core.InitAsyncDebug()

	cfg, err := config.LoadConfig(robotJSON)
	if err != nil {
		halt("[BOOT] config: " + err.Error())
	}

	// Initialize and register drivers
	adcDriver := NewMCP3008Driver(sampleBus, machine.Pin(cfg.Pins.ADCChipSelect))
	if err := adcDriver.Init(); err != nil {
		halt("[BOOT] adc: " + err.Error())
	}
	core.SetADCDriver(adcDriver)
	core.SetGPIODriver(NewRPGPIODriver())
	core.SetServoDriver(NewRP2040ServoDriver(machine.Pin(cfg.Pins.ServoLeft), machine.Pin(cfg.Pins.ServoRight)))

	delay := core.SleepDelayer{}
	drive, err := core.NewDrive(core.MustServo(), delay, *cfg.Calibration)
	if err != nil {
		halt("[BOOT] servo: " + err.Error())
	}

	link, err := protocol.New(core.MustADC(), signalEmitter(cfg), cfg.Transceiver())
	if err != nil {
		halt("[BOOT] transceiver: " + err.Error())
	}

	distEmitter, err := core.NewPinEmitter(core.MustGPIO(), core.GPIOPin(cfg.Pins.DistanceEmitter))
	if err != nil {
		halt("[BOOT] distance emitter: " + err.Error())
	}
	left, right := cfg.DistanceChannels()
	obstacle, err := coop.NewObstacleDetector(core.MustADC(), distEmitter, left, right)
	if err != nil {
		halt("[BOOT] distance: " + err.Error())
	}

	// Timer slots must all be registered before the alarm starts firing.
	if err := sched.Init(core.TimerClock, 1, clocks.Tick); err != nil {
		halt("[BOOT] clock: " + err.Error())
	}
	if err := link.Attach(&sched); err != nil {
		halt("[BOOT] comm timer: " + err.Error())
	}
	if err := obstacle.Attach(&sched); err != nil {
		halt("[BOOT] obstacle timer: " + err.Error())
	}
	startTicker()

	m := swarm.New(cfg.Machine(), link, drive, delay, obstacle, &clocks, core.NewXorShift32(cfg.Seed^hardwareSeed()))

	core.DebugPrintln(core.KeyValueLine("BOOT", "id", int(cfg.ID)))
	core.DebugPrintln("[BOOT] mode=" + cfg.Mode + " policy=" + cfg.CollisionPolicy)

	go reportStats(link)

	// Main loop with panic recovery
	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					drive.Stop()
					core.DumpTransitions(swarm.StateName)
					time.Sleep(100 * time.Millisecond)
				}
			}()
			_ = m.Run(context.Background())
		}()
	}
}

// signalEmitter prefers the PIO emitter and falls back to plain GPIO when
// the pins are not consecutive or no state machine is free.
func signalEmitter(cfg *config.RobotConfig) core.SignalEmitter {
	e, err := pio.NewEmitter(cfg.Pins.SignalEmitters)
	if err == nil {
		return e
	}
	core.DebugPrintln("[BOOT] pio emitter: " + err.Error())

	pins := make([]core.GPIOPin, len(cfg.Pins.SignalEmitters))
	for i, p := range cfg.Pins.SignalEmitters {
		pins[i] = core.GPIOPin(p)
	}
	g, err := core.NewPinEmitter(core.MustGPIO(), pins...)
	if err != nil {
		halt("[BOOT] signal emitter: " + err.Error())
	}
	return g
}

// reportStats prints the transceiver counters for the host monitor.
func reportStats(link *protocol.Transceiver) {
	for {
		time.Sleep(statsInterval)
		s := link.Stats()
		core.DebugAsync(core.KeyValueLine("COMM", "sent", int(s.Sent)))
		core.DebugAsync(core.KeyValueLine("COMM", "decoded", int(s.Decoded)))
		core.DebugAsync(core.KeyValueLine("COMM", "preambles", int(s.Preambles)))
		core.DebugAsync(core.KeyValueLine("COMM", "aborted", int(s.Aborted)))
		core.DebugAsync(core.KeyValueLine("COMM", "backoffs", int(s.Backoffs)))
	}
}

// hardwareSeed mixes the ring-oscillator RNG into the configured seed so
// identically configured robots still diverge.
func hardwareSeed() uint32 {
	v, err := machine.GetRNG()
	if err != nil {
		return GetHardwareTime()
	}
	return v
}

// halt reports a boot failure forever.
func halt(msg string) {
	for {
		writeLine(msg)
		time.Sleep(time.Second)
	}
}
