package serial

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"
)

// Port represents a serial port interface
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - In-memory readers (for testing and replaying captured logs)
type Port interface {
	io.ReadWriteCloser
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate (USB CDC ignores this)
	Baud int

	// ReadTimeout bounds each read so cancellation is noticed (0 = blocking)
	ReadTimeout time.Duration
}

// DefaultBaud is the rate of the robot's telemetry UART.
const DefaultBaud = 115200

// maxLineLength drops runaway lines from a noisy link.
const maxLineLength = 512

// DefaultConfig returns a default configuration for a robot telemetry port
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// ReadLines reads newline-terminated lines from r and passes each non-empty
// line to fn, without its line ending. It returns nil when r reports io.EOF
// and ctx.Err() once ctx is cancelled.
func ReadLines(ctx context.Context, r io.Reader, fn func(line string)) error {
	buf := make([]byte, 256)
	var pending []byte

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		pending = append(pending, buf[:n]...)
		for {
			i := bytes.IndexByte(pending, '\n')
			if i < 0 {
				break
			}
			line := bytes.TrimRight(pending[:i], "\r")
			if len(line) > 0 {
				fn(string(line))
			}
			pending = pending[i+1:]
		}
		if len(pending) > maxLineLength {
			pending = pending[:0]
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				if line := bytes.TrimRight(pending, "\r"); len(line) > 0 {
					fn(string(line))
				}
				return nil
			}
			return err
		}
	}
}
