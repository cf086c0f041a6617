package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocompare/internal/errors"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "GIN_MODE", "LOG_LEVEL", "LOG_FORMAT", "ANALYSIS_WORKERS", "MAX_UPLOAD_BYTES", "MAX_REPLICATED_ROWS", "DATABASE_URL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.Equal(t, 1_000_000, cfg.Analysis.MaxReplicatedRows)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GIN_MODE", "debug")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "console")
	t.Setenv("ANALYSIS_WORKERS", "8")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("DATABASE_URL", "sqlite://runs.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 8, cfg.Analysis.Workers)
	assert.Equal(t, int64(1024), cfg.Server.MaxUploadBytes)

	driver, dsn, err := cfg.Database.Driver()
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", driver)
	assert.Equal(t, "runs.db", dsn)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero workers", "ANALYSIS_WORKERS", "0"},
		{"zero replicated rows", "MAX_REPLICATED_ROWS", "0"},
		{"bad gin mode", "GIN_MODE", "verbose"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"bad port", "PORT", "http"},
		{"bad database scheme", "DATABASE_URL", "mysql://db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}

func TestDatabaseConfig_Driver(t *testing.T) {
	tests := []struct {
		url    string
		driver string
		dsn    string
	}{
		{"postgres://u:p@localhost/db?sslmode=disable", "postgres", "postgres://u:p@localhost/db?sslmode=disable"},
		{"postgresql://localhost/db", "postgres", "postgresql://localhost/db"},
		{"sqlite:///tmp/runs.db", "sqlite3", "/tmp/runs.db"},
		{"file::memory:?cache=shared", "sqlite3", "file::memory:?cache=shared"},
	}
	for _, tt := range tests {
		driver, dsn, err := DatabaseConfig{URL: tt.url}.Driver()
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.driver, driver)
		assert.Equal(t, tt.dsn, dsn)
	}
}
