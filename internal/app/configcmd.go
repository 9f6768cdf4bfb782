package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/commodctl/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("distribution_dir: %s\n", cfg.DistributionDir)
			fmt.Printf("game_dir: %s\n", cfg.GameDir)
			fmt.Printf("language: %s\n", cfg.Language)
			fmt.Printf("monitor_width: %d\n", cfg.MonitorWidth)
			fmt.Printf("log_file: %s\n", cfg.LogFile)
			fmt.Printf("verbose: %t\n", cfg.Verbose)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flagConfig
			if path == "" {
				path = config.DefaultPath()
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			ok("wrote %s", path)
			return nil
		},
	})
	return cmd
}
