package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(newConfigValidateCmd())
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a config file",
		Long:  "Loads the config file, applies defaults and reports every validation problem at once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to EstimAIte config file")
	return cmd
}

func runConfigValidate(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: OK\n", configPath)
	fmt.Fprintf(out, "  listen:     %s\n", cfg.Server.Addr())
	if rl := cfg.Server.RateLimit; rl.PerSecond > 0 {
		fmt.Fprintf(out, "  rate limit: %g/s burst %d\n", rl.PerSecond, rl.Burst)
	} else {
		fmt.Fprintln(out, "  rate limit: disabled")
	}
	fmt.Fprintf(out, "  rooms:      ttl=%s vote=%s policy=%s reaper=%q\n",
		cfg.Rooms.TTL, cfg.Rooms.VoteDuration, cfg.Rooms.Policy, cfg.Rooms.ReaperSchedule)
	fmt.Fprintf(out, "  feedback:   %s\n", cfg.Feedback.Driver)
	platform := cfg.Telegraph.Platform
	if platform == "" {
		platform = "disabled"
	}
	fmt.Fprintf(out, "  telegraph:  %s\n", platform)
	return nil
}
