package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"swarmbot/host/sim"
)

func newSimCmd() *cobra.Command {
	var (
		scenario string
		ticks    uint32
		seed     uint32
	)

	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Simulate a swarm scenario",
		Long: `Runs the robots of a YAML scenario over a simulated optical medium and prints
each robot's transition history and final state.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(scenario)
			if err != nil {
				return fmt.Errorf("read scenario: %w", err)
			}
			sc, err := sim.LoadScenario(data)
			if err != nil {
				return err
			}
			if ticks != 0 {
				sc.Ticks = ticks
			}

			w, err := sim.NewWorld(sc, seed)
			if err != nil {
				return err
			}
			slog.Info("simulating",
				slog.String("run_id", w.RunID()),
				slog.String("scenario", sc.Name),
				slog.Int("robots", len(sc.Robots)),
				slog.Uint64("ticks", uint64(sc.Ticks)),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			report, err := w.Run(ctx, sc.Ticks)
			if err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&scenario, "scenario", "swarm.yaml", "scenario file")
	cmd.Flags().Uint32Var(&ticks, "ticks", 0, "ticks to simulate (default from the scenario)")
	cmd.Flags().Uint32Var(&seed, "seed", 0, "extra seed mixed into every robot")
	return cmd
}
