package config

import (
	"os"
	"path/filepath"
	"testing"

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
	assert.Equal(t, "freightmatch.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(2048), cfg.Anthropic.MaxTokens)
	assert.InDelta(t, 2.0, cfg.Anthropic.RPS, 0.001)
	assert.InDelta(t, 0.7, cfg.Matching.POFuzzyThreshold, 0.001)
	assert.InDelta(t, 0.2, cfg.Matching.BOLFuzzyThreshold, 0.001)
	assert.Equal(t, 10, cfg.Matching.MaxCandidates)
	assert.False(t, cfg.Matching.FuzzyFallback)
	assert.Equal(t, 2, cfg.Worker.PollIntervalSecs)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/freight
log:
  level: debug
  format: console
server:
  port: 9090
matching:
  fuzzy_fallback: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/freight", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Matching.FuzzyFallback)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.7, cfg.Matching.POFuzzyThreshold, 0.001)
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

	t.Setenv("FREIGHT_STORE_DRIVER", "postgres")
	t.Setenv("FREIGHT_LOG_LEVEL", "warn")

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

	t.Setenv("FREIGHT_SERVER_PORT", "3000")
	t.Setenv("FREIGHT_MATCHING_FUZZY_FALLBACK", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.True(t, cfg.Matching.FuzzyFallback)
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

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.SQLitePath = "freightmatch.db"
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Anthropic.Model = "claude-haiku-4-5-20251001"
	cfg.Matching.POFuzzyThreshold = 0.7
	cfg.Matching.BOLFuzzyThreshold = 0.2
	cfg.Matching.MaxCandidates = 10
	cfg.Worker.PollIntervalSecs = 2
	cfg.Worker.Concurrency = 4
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateServe_AllPresent(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateServe_MissingKey(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidatePostgresRequiresURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("migrate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url")

	cfg.Store.DatabaseURL = "postgres://localhost/freight"
	assert.NoError(t, cfg.Validate("migrate"))
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"

	err := cfg.Validate("migrate")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be postgres or sqlite")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateThresholdBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Matching.POFuzzyThreshold = -0.1
	err := cfg.Validate("match")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "po_fuzzy_threshold")

	cfg.Matching.POFuzzyThreshold = 1.1
	err = cfg.Validate("match")
	assert.Error(t, err)

	cfg.Matching.POFuzzyThreshold = 0.7
	cfg.Matching.BOLFuzzyThreshold = 2.0
	err = cfg.Validate("match")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "bol_fuzzy_threshold")

	cfg.Matching.BOLFuzzyThreshold = 0.2
	cfg.Matching.MaxCandidates = 0
	err = cfg.Validate("match")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_candidates must be >= 1")
}

func TestValidateConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Worker.Concurrency = 0
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "worker.concurrency must be between 1 and 32")

	cfg.Worker.Concurrency = 33
	err = cfg.Validate("serve")
	assert.Error(t, err)

	cfg.Worker.Concurrency = 32
	err = cfg.Validate("serve")
	assert.NoError(t, err)
}
