package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"gocompare/internal/errors"
	"gocompare/internal/logging"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `validate:"required"`
	Logging  logging.Config `validate:"required"`
	Analysis AnalysisConfig `validate:"required"`
	Database DatabaseConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string `validate:"required,numeric"`
	GinMode        string `validate:"oneof=debug release test"`
	MaxUploadBytes int64  `validate:"gt=0"`
}

// AnalysisConfig holds engine execution settings. Statistical thresholds are
// constants, not configuration.
type AnalysisConfig struct {
	Workers int `validate:"gte=1,lte=256"`
	// MaxReplicatedRows caps the table size replication may produce.
	MaxReplicatedRows int `validate:"gte=1"`
}

// DatabaseConfig holds the optional run-history store. An empty URL
// disables history.
type DatabaseConfig struct {
	URL string `validate:"omitempty,database_url"`
}

// Driver returns the sql driver name and data source for the URL.
func (d DatabaseConfig) Driver() (driver, dsn string, err error) {
	switch {
	case d.URL == "":
		return "", "", errors.ConfigInvalid("database URL is empty")
	case strings.HasPrefix(d.URL, "postgres://"), strings.HasPrefix(d.URL, "postgresql://"):
		return "postgres", d.URL, nil
	case strings.HasPrefix(d.URL, "sqlite://"):
		return "sqlite3", strings.TrimPrefix(d.URL, "sqlite://"), nil
	case strings.HasPrefix(d.URL, "file:"):
		return "sqlite3", d.URL, nil
	default:
		return "", "", errors.ConfigInvalid(fmt.Sprintf("unsupported database URL scheme: %s", d.URL))
	}
}

// Enabled reports whether run history is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

const defaultMaxUploadBytes = 10 << 20

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:           getEnvOrDefault("PORT", "8080"),
			GinMode:        getEnvOrDefault("GIN_MODE", "release"),
			MaxUploadBytes: getEnvInt64OrDefault("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		},
		Logging: logging.Config{
			Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json")),
		},
		Analysis: AnalysisConfig{
			Workers:           getEnvIntOrDefault("ANALYSIS_WORKERS", 4),
			MaxReplicatedRows: getEnvIntOrDefault("MAX_REPLICATED_ROWS", 1_000_000),
		},
		Database: DatabaseConfig{
			URL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func validateConfig(config *Config) error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("database_url", func(fl validator.FieldLevel) bool {
		_, _, err := DatabaseConfig{URL: fl.Field().String()}.Driver()
		return err == nil
	}); err != nil {
		return err
	}

	if err := validate.Struct(config); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
