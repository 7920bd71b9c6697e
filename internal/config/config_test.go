package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "research.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "https://data.sec.gov", cfg.Edgar.BaseURL)
	assert.InDelta(t, 10.0, cfg.Edgar.RateLimit, 0.001)
	assert.Equal(t, 3, cfg.Pipeline.SearchRetries)
	assert.InDelta(t, 2.0, cfg.Pipeline.SearchBackoffSecs, 0.001)
	assert.Equal(t, 120, cfg.Pipeline.CallTimeoutSecs)
	assert.Equal(t, 5, cfg.Pipeline.MaxConcurrentSearch)
	assert.InDelta(t, 0.1, cfg.Pipeline.BalanceTolerancePct, 0.001)
	assert.Equal(t, 2, cfg.Pipeline.SpecialistMaxQueries)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/research
log:
  level: debug
  format: console
pipeline:
  search_retries: 5
  max_concurrent_searches: 10
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/research", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Pipeline.SearchRetries)
	assert.Equal(t, 10, cfg.Pipeline.MaxConcurrentSearch)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.1, cfg.Pipeline.BalanceTolerancePct, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RESEARCH_STORE_DRIVER", "postgres")
	t.Setenv("RESEARCH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("RESEARCH_PIPELINE_SEARCH_RETRIES", "7")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Pipeline.SearchRetries)
}

func TestPipelineDurations(t *testing.T) {
	p := PipelineConfig{SearchBackoffSecs: 2.5, CallTimeoutSecs: 90}
	assert.Equal(t, 2500*time.Millisecond, p.SearchBackoff())
	assert.Equal(t, 90*time.Second, p.CallTimeout())
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
