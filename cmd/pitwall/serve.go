package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/replay"
	"github.com/yourusername/pitwall/internal/scheduler"
	"github.com/yourusername/pitwall/internal/server"
	"github.com/yourusername/pitwall/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the replay HTTP service",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	ticks := replay.NewCronScheduler(a.log)
	defer ticks.Stop()

	sessions := session.NewManager(a.provider, ticks, session.ManagerConfig{
		LapInterval:   a.cfg.Replay.LapInterval,
		MaxSessions:   a.cfg.Replay.MaxSessions,
		DefaultMaxLap: a.cfg.Replay.DefaultMaxLap,
	}, a.log)

	if a.cfg.Warmup.Enabled {
		if cached, ok := datasource.CacheLayer(a.provider); ok {
			jobs := scheduler.NewScheduler(a.log)
			if err := jobs.ScheduleCacheWarmup(a.cfg.Warmup.Cron, cached); err != nil {
				return err
			}
			if err := jobs.Start(); err != nil {
				return err
			}
			defer func() {
				if err := jobs.Stop(); err != nil {
					a.log.WithError(err).Warn("Scheduler stop incomplete")
				}
			}()
			go func() {
				_ = jobs.RunCacheWarmup(ctx, cached)
			}()
		}
	}

	var opts []server.Option
	if a.db != nil {
		opts = append(opts, server.WithDatabase(a.db))
	}
	srv := server.NewServer(server.ConfigFrom(a.cfg, Version), sessions, a.provider, a.log, opts...)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	a.log.WithFields(logrus.Fields{
		"addr":     a.cfg.Address(),
		"provider": a.provider.Name(),
	}).Info("pitwall is serving")

	<-ctx.Done()
	a.log.Info("Shutdown signal received")
	if err := srv.Shutdown(); err != nil {
		a.log.WithError(err).Error("Error during server shutdown")
	}
	a.log.Info("pitwall shut down")
	return nil
}
