// Package main provides pitwall-status, a quick check of the configured data
// provider and the upstream prediction models.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/database"
	"github.com/yourusername/pitwall/internal/datasource"
)

var errUnhealthy = errors.New("data source is unhealthy")

var (
	configFile string
	timeout    time.Duration
	cfg        *config.Config
	logger     *logrus.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultConfigPath, "Path to configuration file")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Overall time allowed for the checks")
}

var rootCmd = &cobra.Command{
	Use:          "pitwall-status",
	Short:        "Check data provider and prediction model status",
	Long:         `Displays health of the configured data source, the current race and the upstream model status.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadWithDefaults(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := config.Validate(cfg); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		return displayStatus(ctx, cmd.OutOrStdout())
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func displayStatus(ctx context.Context, out io.Writer) error {
	// Report the configured source as-is: no mock fallback, no cache.
	dsCfg := cfg.DataSource
	dsCfg.FallbackToMock = false
	dsCfg.Cache.Enabled = false

	deps := datasource.Deps{Logger: logger}
	if dsCfg.Kind == config.ProviderPostgres {
		db, err := database.NewDB(ctx, cfg.Database)
		if err != nil {
			fmt.Fprintf(out, "Database: UNAVAILABLE (%v)\n", err)
			return err
		}
		defer db.Close()
		deps.DB = db
	}

	provider, err := datasource.NewProvider(dsCfg, deps)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "pitwall data source status")
	fmt.Fprintf(out, "  Kind:     %s\n", dsCfg.Kind)
	if dsCfg.Kind == config.ProviderAPI {
		fmt.Fprintf(out, "  Base URL: %s\n", dsCfg.BaseURL)
	}

	fmt.Fprint(out, "\nHealth: ")
	healthy := true
	if err := provider.HealthCheck(ctx); err != nil {
		healthy = false
		fmt.Fprintln(out, "UNAVAILABLE")
		fmt.Fprintf(out, "  Error: %v\n", err)
	} else {
		fmt.Fprintln(out, "ONLINE")
	}

	fmt.Fprint(out, "\nCurrent race: ")
	if race, err := provider.FetchCurrentRace(ctx); err != nil {
		fmt.Fprintf(out, "unavailable (%v)\n", err)
	} else {
		fmt.Fprintf(out, "%s, %s (id %d, %d laps)\n", race.Name, race.Date, race.RaceID, race.ScheduledLaps())
	}

	fmt.Fprintln(out, "\nModels:")
	status, err := provider.FetchModelStatus(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(out, "  unavailable (%v)\n", err)
	case len(status) == 0:
		fmt.Fprintln(out, "  none reported")
	default:
		names := lo.Keys(status)
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %s: %v\n", name, status[name])
		}
	}

	if !healthy {
		return errUnhealthy
	}
	return nil
}
