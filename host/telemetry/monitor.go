package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"swarmbot/host/serial"
)

// Chatty lines (counters, beacons, boot banners) are logged at most this
// often; transitions are always logged.
const (
	defaultLogRate  = rate.Limit(5)
	defaultLogBurst = 10
	shutdownTimeout = 2 * time.Second
)

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	// MetricsAddr is the listen address of the /metrics endpoint; empty
	// disables it.
	MetricsAddr string

	Logger *slog.Logger

	// LogRate and LogBurst throttle non-transition lines.
	LogRate  rate.Limit
	LogBurst int
}

// Monitor reads telemetry lines from a robot and exports them.
type Monitor struct {
	cfg      MonitorConfig
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *Metrics
	limiter  *rate.Limiter

	mu      sync.Mutex
	history []Event
}

// maxHistory bounds the transitions kept for inspection.
const maxHistory = 256

// NewMonitor creates a monitor with its own metrics registry.
func NewMonitor(cfg MonitorConfig) *Monitor {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.LogRate == 0 {
		cfg.LogRate = defaultLogRate
	}
	if cfg.LogBurst == 0 {
		cfg.LogBurst = defaultLogBurst
	}

	reg := prometheus.NewRegistry()
	return &Monitor{
		cfg:      cfg,
		logger:   cfg.Logger,
		registry: reg,
		metrics:  NewMetrics(reg),
		limiter:  rate.NewLimiter(cfg.LogRate, cfg.LogBurst),
	}
}

// Registry returns the registry the monitor's metrics live on.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Metrics returns the monitor's metrics.
func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

// Transitions returns the most recent transitions, oldest first.
func (m *Monitor) Transitions() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.history...)
}

// Handle processes one raw line.
func (m *Monitor) Handle(line string) {
	ev, err := Parse(line)
	if err != nil {
		if !errors.Is(err, ErrNotTelemetry) {
			tag, _, _ := splitTag(line)
			m.metrics.ParseError(tag)
		}
		if m.limiter.Allow() {
			m.logger.Debug("unparsed line", slog.String("line", line), slog.Any("error", err))
		}
		return
	}

	m.mu.Lock()
	m.metrics.Observe(ev)
	if ev.Kind == KindTransition {
		if len(m.history) == maxHistory {
			m.history = m.history[1:]
		}
		m.history = append(m.history, ev)
	}
	m.mu.Unlock()

	switch ev.Kind {
	case KindTransition:
		m.logger.Info("transition",
			slog.String("from", ev.From),
			slog.String("to", ev.To),
			slog.Uint64("clock", uint64(ev.Clock)),
		)
	case KindValue:
		if m.limiter.Allow() {
			m.logger.Info("report",
				slog.String("tag", ev.Tag),
				slog.String("key", ev.Key),
				slog.String("value", ev.Value),
			)
		}
	default:
		if m.limiter.Allow() {
			m.logger.Debug("line", slog.String("tag", ev.Tag), slog.String("text", ev.Text))
		}
	}
}

// Run reads lines from r until it is exhausted or ctx is cancelled, serving
// /metrics alongside when configured.
func (m *Monitor) Run(ctx context.Context, r io.Reader) error {
	g, gCtx := errgroup.WithContext(ctx)

	var srv *http.Server
	if m.cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
		srv = &http.Server{Addr: m.cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			m.logger.Info("serving metrics", slog.String("addr", m.cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		err := serial.ReadLines(gCtx, r, m.Handle)
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}
		return err
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
