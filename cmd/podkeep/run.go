package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/podkeep/podkeep/pkg/config"
	"github.com/podkeep/podkeep/pkg/log"
	"github.com/podkeep/podkeep/pkg/metrics"
	"github.com/podkeep/podkeep/pkg/monitor"
	"github.com/podkeep/podkeep/pkg/runtime"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring daemon",
	Long: `Run the monitoring daemon: discover the declared containers, perform
one startup recovery pass so containers already down at boot are restarted
immediately, then enter the periodic check/status loop until terminated.`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (disabled when empty)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if err := setupLogging(cmd); err != nil {
		return err
	}

	logger := log.WithComponent("main")
	logger.Info().Str("version", Version).Msg("starting podkeep")

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		// The only fatal error: without a config there is nothing to monitor
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Info().
		Str("config", cfgPath).
		Int("compose_files", len(cfg.ComposeFiles)).
		Dur("check_interval", cfg.CheckInterval()).
		Dur("status_interval", cfg.StatusInterval()).
		Msg("configuration loaded")

	mon := monitor.New(cfg, cfgPath, runtime.NewPodmanClient())

	// Mirror monitor events into the log at debug level
	sub := mon.Events().Subscribe()
	defer mon.Events().Unsubscribe(sub)
	go func() {
		eventLog := log.WithComponent("events")
		for ev := range sub {
			eventLog.Debug().
				Str("type", string(ev.Type)).
				Str("container", ev.Container).
				Str("message", ev.Message).
				Msg("event")
		}
	}()

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		go serveMetrics(addr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return mon.Run(ctx)
}

func serveMetrics(addr string) {
	logger := log.WithComponent("metrics")
	logger.Info().Str("addr", addr).Msg("serving metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}
