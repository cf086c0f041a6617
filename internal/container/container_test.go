package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gocompare/app"
	"gocompare/internal/config"
	"gocompare/internal/errors"
	"gocompare/internal/logging"
)

func testConfig(databaseURL string) *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{Port: "8080", GinMode: "test", MaxUploadBytes: 1 << 20},
		Logging:  logging.Config{Level: "error", Format: "json"},
		Analysis: config.AnalysisConfig{Workers: 2},
		Database: config.DatabaseConfig{URL: databaseURL},
	}
}

func TestNew_WithoutDatabase(t *testing.T) {
	c, err := New(context.Background(), testConfig(""))
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.DB)
	assert.Nil(t, c.RunRepo)
	assert.False(t, c.Analysis.HistoryEnabled())
	assert.NotNil(t, c.Metrics)
}

func TestNew_WithSQLite(t *testing.T) {
	c, err := New(context.Background(), testConfig("sqlite://:memory:"))
	require.NoError(t, err)
	defer c.Close()

	assert.NotNil(t, c.DB)
	assert.True(t, c.Analysis.HistoryEnabled())

	res, err := c.Analysis.AnalyzeJSON(context.Background(), appRequest())
	require.NoError(t, err)
	assert.Contains(t, res, "Independent t-test")
}

func TestNew_BadLogging(t *testing.T) {
	cfg := testConfig("")
	cfg.Logging.Level = "loud"
	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func appRequest() app.AnalysisRequest {
	return app.AnalysisRequest{
		Data:        "condition,value\nA,1.0\nA,2.0\nA,1.5\nB,10.0\nB,11.0\nB,10.5\n",
		GroupColumn: "condition",
		Metrics:     []string{"value"},
	}
}
