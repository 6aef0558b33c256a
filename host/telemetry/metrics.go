package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports what one robot reports over its telemetry link.
type Metrics struct {
	transitions *prometheus.CounterVec
	state       *prometheus.GaugeVec
	lines       *prometheus.CounterVec
	values      *prometheus.GaugeVec
	backoffs    prometheus.Counter
	parseErrors prometheus.Counter

	current string
}

// NewMetrics registers the metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarmbot_transitions_total",
				Help: "State machine transitions by source and target state",
			},
			[]string{"from", "to"},
		),
		state: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "swarmbot_state",
				Help: "1 for the state the robot last reported entering, 0 otherwise",
			},
			[]string{"state"},
		),
		lines: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swarmbot_telemetry_lines_total",
				Help: "Telemetry lines received by tag",
			},
			[]string{"tag"},
		),
		values: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "swarmbot_reported_value",
				Help: "Latest integer value reported on a [TAG] key=value line",
			},
			[]string{"tag", "key"},
		),
		backoffs: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "swarmbot_transmit_backoffs_total",
				Help: "Transmissions abandoned because the medium was occupied",
			},
		),
		parseErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "swarmbot_telemetry_parse_errors_total",
				Help: "Lines that looked like telemetry but could not be parsed",
			},
		),
	}
}

// Observe records one event.
func (m *Metrics) Observe(ev Event) {
	m.lines.WithLabelValues(ev.Tag).Inc()

	switch ev.Kind {
	case KindTransition:
		m.transitions.WithLabelValues(ev.From, ev.To).Inc()
		if m.current != "" {
			m.state.WithLabelValues(m.current).Set(0)
		}
		m.state.WithLabelValues(ev.To).Set(1)
		m.current = ev.To
	case KindValue:
		if ev.Tag == "COMM" && ev.Key == "backoff" {
			m.backoffs.Inc()
			return
		}
		if ev.IsInt {
			m.values.WithLabelValues(ev.Tag, ev.Key).Set(float64(ev.IntValue))
		}
	}
}

// ParseError counts a malformed line. It still counts toward its tag's
// line total.
func (m *Metrics) ParseError(tag string) {
	m.lines.WithLabelValues(tag).Inc()
	m.parseErrors.Inc()
}

// State returns the last reported state, or "" before the first transition.
func (m *Metrics) State() string {
	return m.current
}
