// Package main provides the pitwall command: the replay HTTP service and a
// terminal replay of a single race.
package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/yourusername/pitwall/internal/config"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var (
	configFile string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "pitwall",
	Short:         "F1 race-prediction replay service",
	Long:          `Serves Live Mode replay sessions and race data for the prediction dashboard.`,
	Version:       Version + " (" + GitCommit + ", " + BuildDate + ")",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultConfigPath, "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override app.log_level")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
