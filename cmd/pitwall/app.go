package main

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/config"
	"github.com/yourusername/pitwall/internal/database"
	"github.com/yourusername/pitwall/internal/datasource"
	"github.com/yourusername/pitwall/internal/logger"
	"github.com/yourusername/pitwall/internal/metrics"
)

// app holds the dependencies shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	db       *database.DB
	provider datasource.Provider
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if logLevel != "" {
		cfg.App.LogLevel = logLevel
	}

	if err := config.LoadSecretsFromAWS(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{
		cfg: cfg,
		log: logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment),
	}
	a.log.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
		"data_source": cfg.DataSource.Kind,
		"version":     Version,
	}).Info("pitwall starting")

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	deps := datasource.Deps{Logger: a.log}
	if cfg.DataSource.Kind == config.ProviderPostgres {
		a.db, err = database.Initialize(ctx, cfg.Database, a.log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		deps.DB = a.db
	}

	a.provider, err = datasource.NewProvider(cfg.DataSource, deps)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create data provider: %w", err)
	}

	return a, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}
