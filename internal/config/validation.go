package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// MinLapInterval is the shortest lap interval the cron-backed scheduler supports.
const MinLapInterval = time.Second

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Registration only fails on an empty tag
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("providerkind", validateProviderKind)
	_ = v.RegisterValidation("cronspec", validateCronSpec)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateProviderKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case ProviderMock, ProviderAPI, ProviderPostgres:
		return true
	default:
		return false
	}
}

func validateCronSpec(fl validator.FieldLevel) bool {
	_, err := cron.ParseStandard(fl.Field().String())
	return err == nil
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Replay.LapInterval < MinLapInterval {
		return fmt.Errorf("replay lap_interval must be at least %s, got %s", MinLapInterval, cfg.Replay.LapInterval)
	}
	if cfg.Replay.LapInterval%time.Second != 0 {
		return fmt.Errorf("replay lap_interval must be a whole number of seconds, got %s", cfg.Replay.LapInterval)
	}

	switch cfg.DataSource.Kind {
	case ProviderAPI:
		if cfg.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source base_url is required for kind %q", ProviderAPI)
		}
	case ProviderPostgres:
		if !cfg.Database.Configured() {
			return fmt.Errorf("data_source kind %q requires database host, name and user", ProviderPostgres)
		}
	}

	if cfg.DataSource.Cache.Enabled && cfg.DataSource.Cache.MaxSize == 0 {
		return fmt.Errorf("data_source cache max_size must be positive when the cache is enabled")
	}

	if cfg.Warmup.Enabled {
		if cfg.Warmup.Cron == "" {
			return fmt.Errorf("warmup cron is required when warmup is enabled")
		}
		if !cfg.DataSource.Cache.Enabled {
			return fmt.Errorf("warmup requires data_source cache to be enabled")
		}
	}

	if cfg.Secrets.Enabled && (cfg.Secrets.Region == "" || cfg.Secrets.SecretName == "") {
		return fmt.Errorf("secrets region and secret_name are required when secrets are enabled")
	}

	if cfg.IsProduction() && cfg.DataSource.Kind == ProviderPostgres && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires database SSL mode to be 'require' or 'verify-full'")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "providerkind":
			fmt.Fprintf(&b, "- Field '%s' must be one of: mock, api, postgres\n", field)
		case "cronspec":
			fmt.Fprintf(&b, "- Field '%s' must be a standard cron expression, got '%v'\n", field, value)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, value)
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}
