package database

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/pitwall/internal/config"
)

// RequiredTables are the Ergast-style tables the historical provider reads.
var RequiredTables = []string{"races", "circuits", "drivers", "lap_times", "pit_stops"}

// OptionalTables are read when present.
var OptionalTables = []string{"prediction_confidence"}

// Initialize creates a database connection pool and verifies the race schema is present
func Initialize(ctx context.Context, cfg config.DatabaseConfig, logger *logrus.Logger) (*DB, error) {
	db, err := NewDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	missing, err := db.MissingTables(ctx, RequiredTables)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to inspect schema: %w", err)
	}
	if len(missing) > 0 {
		db.Close()
		return nil, fmt.Errorf("race schema incomplete, missing tables: %v", missing)
	}

	optional, err := db.MissingTables(ctx, OptionalTables)
	if err == nil && len(optional) > 0 && logger != nil {
		logger.WithField("tables", optional).Warn("Optional tables missing; confidence series will be empty")
	}

	return db, nil
}

// MissingTables returns the names from tables that do not exist in the current schema.
func (db *DB) MissingTables(ctx context.Context, tables []string) ([]string, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = current_schema() AND table_name = ANY($1)`, tables)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	present := make(map[string]bool, len(tables))
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []string
	for _, t := range tables {
		if !present[t] {
			missing = append(missing, t)
		}
	}
	return missing, nil
}
