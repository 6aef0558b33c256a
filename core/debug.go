package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TransitionEvent captures one state change for post-mortem analysis
type TransitionEvent struct {
	From  uint8  // State left
	To    uint8  // State entered
	Clock uint32 // Phase clock at the transition
	Value uint32 // Context-dependent value (tally, role, ...)
}

const (
	TransitionRingSize = 32 // Keep last 32 transitions for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = true

	transitionRing     [TransitionRingSize]TransitionEvent
	transitionRingHead uint8
	transitionCount    uint32

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine
// Call this from main() after SetDebugWriter
func InitAsyncDebug() {
	debugChan = make(chan string, 16) // Buffer 16 messages
	go debugOutputWorker()
}

// debugOutputWorker runs in background, drains debug channel
func debugOutputWorker() {
	for msg := range debugChan {
		if debugPrintln != nil {
			debugPrintln(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Returns immediately even if channel is full (drops message)
func DebugAsync(msg string) {
	if !debugEnabled {
		return
	}
	if debugChan == nil {
		DebugPrintln(msg)
		return
	}
	select {
	case debugChan <- msg:
	default:
		// Channel full, drop message (non-blocking)
	}
}

// RecordTransition stores a transition in the ring buffer.
func RecordTransition(from, to uint8, clock, value uint32) {
	idx := transitionRingHead
	transitionRing[idx] = TransitionEvent{
		From:  from,
		To:    to,
		Clock: clock,
		Value: value,
	}
	transitionRingHead = (idx + 1) % TransitionRingSize
	transitionCount++
}

// Transitions returns the recorded transitions, oldest first.
func Transitions() []TransitionEvent {
	n := transitionCount
	if n > TransitionRingSize {
		n = TransitionRingSize
	}
	out := make([]TransitionEvent, 0, n)
	start := (transitionRingHead + TransitionRingSize - uint8(n)) % TransitionRingSize
	for i := uint8(0); i < uint8(n); i++ {
		out = append(out, transitionRing[(start+i)%TransitionRingSize])
	}
	return out
}

// DumpTransitions outputs the transition ring (call on shutdown/error).
// name maps a state number to its label.
func DumpTransitions(name func(uint8) string) {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[FSM] === Transition Ring Dump ===")
	debugPrintln("[FSM] total=" + utoa(transitionCount))
	for _, evt := range Transitions() {
		debugPrintln(TransitionLine(name(evt.From), name(evt.To), evt.Clock))
	}
	debugPrintln("[FSM] === End Dump ===")
}

// ClearTransitions clears the ring buffer
func ClearTransitions() {
	for i := range transitionRing {
		transitionRing[i] = TransitionEvent{}
	}
	transitionRingHead = 0
	transitionCount = 0
}

// TransitionLine formats the telemetry line for a state change. The host
// monitor parses this format.
func TransitionLine(from, to string, clock uint32) string {
	return "[FSM] clock=" + utoa(clock) + " from=" + from + " to=" + to
}

// KeyValueLine formats a generic telemetry line: "[TAG] key=value".
func KeyValueLine(tag, key string, value int) string {
	return "[" + tag + "] " + key + "=" + itoa(value)
}
