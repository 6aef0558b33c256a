package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"swarmbot/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Work with robot configurations",
	}

	check := &cobra.Command{
		Use:   "check <robot.json>...",
		Short: "Validate robot configuration files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				cfg, err := checkConfig(path)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (id %d, mode %s, policy %s, command %d)\n",
					path, cfg.ID, cfg.Mode, cfg.CollisionPolicy, cfg.Command)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d configurations invalid", failed, len(args))
			}
			return nil
		},
	}

	cmd.AddCommand(check)
	return cmd
}

func checkConfig(path string) (*config.RobotConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return config.LoadConfig(data)
}
