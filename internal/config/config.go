// Package config provides configuration management for the pitwall service.
package config

import (
	"fmt"
	"time"
)

// Provider kinds accepted by data_source.kind
const (
	ProviderMock     = "mock"
	ProviderAPI      = "api"
	ProviderPostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	Replay     ReplayConfig     `mapstructure:"replay" validate:"required"`
	DataSource DataSourceConfig `mapstructure:"data_source" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Warmup     WarmupConfig     `mapstructure:"warmup"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// ServerConfig represents the HTTP listener configuration
type ServerConfig struct {
	Host                   string   `mapstructure:"host"`
	Port                   int      `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeoutSeconds     int      `mapstructure:"read_timeout_seconds" validate:"gte=0"`
	WriteTimeoutSeconds    int      `mapstructure:"write_timeout_seconds" validate:"gte=0"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
	AllowedOrigins         []string `mapstructure:"allowed_origins"`
}

// ReplayConfig controls Live Mode playback
type ReplayConfig struct {
	LapInterval   time.Duration `mapstructure:"lap_interval" validate:"required"`
	DefaultMaxLap int           `mapstructure:"default_max_lap" validate:"gte=0"`
	MaxSessions   int           `mapstructure:"max_sessions" validate:"gte=0"`
}

// DataSourceConfig selects and tunes the race data provider
type DataSourceConfig struct {
	Kind              string      `mapstructure:"kind" validate:"required,providerkind"`
	BaseURL           string      `mapstructure:"base_url" validate:"omitempty,url"`
	TimeoutSeconds    int         `mapstructure:"timeout_seconds" validate:"gte=0"`
	RetryAttempts     int         `mapstructure:"retry_attempts" validate:"gte=0,lte=10"`
	RateLimit         float64     `mapstructure:"rate_limit" validate:"gte=0"`
	CircuitBreakerMax int         `mapstructure:"circuit_breaker_max" validate:"gte=0"`
	Seed              int64       `mapstructure:"seed"`
	MockDelayMs       int         `mapstructure:"mock_delay_ms" validate:"gte=0"`
	FallbackToMock    bool        `mapstructure:"fallback_to_mock"`
	APIToken          string      `mapstructure:"api_token"`
	Cache             CacheConfig `mapstructure:"cache"`
}

// CacheConfig configures the provider response cache
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLSeconds int  `mapstructure:"ttl_seconds" validate:"gte=0"`
	MaxSize    int  `mapstructure:"max_size" validate:"gte=0"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"gte=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// WarmupConfig schedules periodic cache warmup of the current race
type WarmupConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron" validate:"omitempty,cronspec"`
}

// SecretsConfig points at an optional AWS Secrets Manager secret
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Address returns the host:port the HTTP server listens on
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return c.Database.DSN()
}

// DSN returns a PostgreSQL connection string
func (d DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Name,
		sslMode,
	)
}

// Configured reports whether enough fields are set to open a connection
func (d DatabaseConfig) Configured() bool {
	return d.Host != "" && d.Name != "" && d.User != ""
}

// Timeout returns the upstream request timeout
func (d DataSourceConfig) Timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// MockDelay returns the artificial latency of the mock provider
func (d DataSourceConfig) MockDelay() time.Duration {
	return time.Duration(d.MockDelayMs) * time.Millisecond
}

// TTL returns the cache entry lifetime
func (c CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.TTLSeconds) * time.Second
}
