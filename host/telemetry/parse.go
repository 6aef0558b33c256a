// Package telemetry turns the robots' debug lines into structured events,
// prometheus metrics and logs.
package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a telemetry line.
type Kind int

const (
	// KindTransition is a state change: "[FSM] clock=N from=A to=B".
	KindTransition Kind = iota
	// KindValue is a "[TAG] key=value" line.
	KindValue
	// KindText is any other tagged line.
	KindText
)

var (
	ErrNotTelemetry = errors.New("telemetry: line has no [TAG] prefix")
	ErrBadField     = errors.New("telemetry: malformed field")
)

// Event is one parsed telemetry line.
type Event struct {
	Kind Kind
	Tag  string

	// Transition fields.
	Clock uint32
	From  string
	To    string

	// Value fields. Value is the raw text; IntValue is set when it parses
	// as an integer.
	Key      string
	Value    string
	IntValue int64
	IsInt    bool

	// Text holds everything after the tag.
	Text string
}

// splitTag separates the "[TAG]" prefix from the rest of the line.
func splitTag(line string) (tag, rest string, ok bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "[") {
		return "", "", false
	}
	end := strings.IndexByte(line, ']')
	if end < 2 {
		return "", "", false
	}
	return line[1:end], strings.TrimSpace(line[end+1:]), true
}

// Parse parses one telemetry line.
func Parse(line string) (Event, error) {
	tag, rest, ok := splitTag(line)
	if !ok {
		return Event{}, ErrNotTelemetry
	}

	ev := Event{
		Kind: KindText,
		Tag:  tag,
		Text: rest,
	}
	fields := strings.Fields(ev.Text)

	if ev.Tag == "FSM" && len(fields) == 3 && strings.HasPrefix(fields[0], "clock=") {
		return parseTransition(ev, fields)
	}
	if len(fields) == 1 && strings.Contains(fields[0], "=") {
		key, value, _ := strings.Cut(fields[0], "=")
		if key == "" {
			return Event{}, fmt.Errorf("%w: %q", ErrBadField, fields[0])
		}
		ev.Kind = KindValue
		ev.Key = key
		ev.Value = value
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			ev.IntValue = n
			ev.IsInt = true
		}
	}
	return ev, nil
}

func parseTransition(ev Event, fields []string) (Event, error) {
	want := [3]string{"clock", "from", "to"}
	var vals [3]string
	for i, f := range fields {
		key, value, ok := strings.Cut(f, "=")
		if !ok || key != want[i] || value == "" {
			return Event{}, fmt.Errorf("%w: %q", ErrBadField, f)
		}
		vals[i] = value
	}
	clock, err := strconv.ParseUint(vals[0], 10, 32)
	if err != nil {
		return Event{}, fmt.Errorf("%w: clock %q", ErrBadField, vals[0])
	}

	ev.Kind = KindTransition
	ev.Clock = uint32(clock)
	ev.From = vals[1]
	ev.To = vals[2]
	return ev, nil
}
