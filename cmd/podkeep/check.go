package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/podkeep/podkeep/pkg/config"
	"github.com/podkeep/podkeep/pkg/monitor"
	"github.com/podkeep/podkeep/pkg/runtime"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single reconciliation pass and exit",
	Long: `Run discovery and one reconciliation pass, then exit. The exit code
reflects whether the cycle completed; useful from cron or as a smoke test
for a new configuration.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	mon := monitor.New(cfg, cfgPath, runtime.NewPodmanClient())
	mon.Discover()

	if err := mon.ReconcileOnce(cmd.Context()); err != nil {
		return fmt.Errorf("check cycle failed: %w", err)
	}

	mon.StatusSummary()
	return nil
}
