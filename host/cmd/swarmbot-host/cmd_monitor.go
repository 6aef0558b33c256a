package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"swarmbot/host/serial"
	"swarmbot/host/telemetry"
)

func newMonitorCmd() *cobra.Command {
	var (
		port        string
		baud        int
		file        string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Read a robot's telemetry and export prometheus metrics",
		Long: `Reads telemetry lines from a robot's serial port (or a captured log with
--file), logs state transitions and serves the metrics on --metrics-addr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			src, err := openSource(port, baud, file)
			if err != nil {
				return err
			}
			defer src.Close()

			mon := telemetry.NewMonitor(telemetry.MonitorConfig{
				MetricsAddr: metricsAddr,
				Logger:      slog.Default(),
			})
			return runMonitor(ctx, mon, src)
		},
	}

	cmd.Flags().StringVar(&port, "port", "/dev/ttyACM0", "serial device")
	cmd.Flags().IntVar(&baud, "baud", serial.DefaultBaud, "baud rate (ignored by USB CDC)")
	cmd.Flags().StringVar(&file, "file", "", "replay a captured telemetry log instead of a serial port")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9109", "listen address for /metrics, empty to disable")
	return cmd
}

func openSource(port string, baud int, file string) (io.ReadCloser, error) {
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open telemetry log: %w", err)
		}
		return f, nil
	}

	cfg := serial.DefaultConfig(port)
	cfg.Baud = baud
	p, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("connected", slog.String("port", p.Device()), slog.Int("baud", baud))
	return p, nil
}

func runMonitor(ctx context.Context, mon *telemetry.Monitor, r io.Reader) error {
	err := mon.Run(ctx, r)
	if state := mon.Metrics().State(); state != "" {
		slog.Info("monitor stopped", slog.String("last_state", state),
			slog.Int("transitions", len(mon.Transitions())))
	}
	return err
}
