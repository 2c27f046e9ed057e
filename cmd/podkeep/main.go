package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/podkeep/podkeep/pkg/log"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "podkeep",
	Short: "Podkeep - keeps compose-managed containers running",
	Long: `Podkeep supervises the containers declared across one or more
compose descriptors. It periodically compares the declared set against
what podman reports as running and restarts any deployment unit whose
containers have gone missing, with exponential backoff and a failure cap
per container.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Podkeep version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringP("config", "c", "podkeep.yaml", "Path to the monitor config file")
	rootCmd.PersistentFlags().String("log-dir", "logs", "Directory for the JSON log file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit console output as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
}

// setupLogging initializes the global logger from the persistent flags
func setupLogging(cmd *cobra.Command) error {
	dir, _ := cmd.Flags().GetString("log-dir")
	level, _ := cmd.Flags().GetString("log-level")
	jsonOut, _ := cmd.Flags().GetBool("log-json")

	return log.Init(log.Config{
		Level:      log.Level(level),
		JSONOutput: jsonOut,
		Dir:        dir,
	})
}
