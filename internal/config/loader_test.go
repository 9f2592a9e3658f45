package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/internal/config"
)

const validConfigYAML = `
server:
  host: "127.0.0.1"
  port: 8080
database:
  patents_path: "testdata/patents.db"
  projects_path: "testdata/cordis.db"
  gleif_cache_path: "testdata/api_cache.db"
radar:
  panel_timeout: 5s
  cpc_level: 4
log:
  level: "debug"
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	err := os.WriteFile(path, []byte(content), 0o644)
	require.NoError(t, err)
	return path
}

func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		os.Setenv(k, v)
	}
	t.Cleanup(func() {
		for k := range vars {
			os.Unsetenv(k)
		}
	})
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	cfg, err := config.Load(config.WithConfigPath(path))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "testdata/patents.db", cfg.Database.PatentsPath)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := config.Load(config.WithConfigPath("non_existent_config.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non_existent_config.yaml")
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	path := createTempConfigFile(t, "invalid_yaml: [")
	_, err := config.Load(config.WithConfigPath(path))
	assert.Error(t, err)
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	path := createTempConfigFile(t, "server:\n  port: -1\n")
	_, err := config.Load(config.WithConfigPath(path))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoad_NoFile_UsesDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultPort, cfg.Server.Port)
	assert.Equal(t, config.DefaultPatentsPath, cfg.Database.PatentsPath)
	assert.Equal(t, config.DefaultRateLimitRPS, cfg.RateLimit.RPS)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoad_BareEnvNamesOverrideFile(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	setEnvVars(t, map[string]string{
		"PORT":            "9999",
		"PATENTS_DB_PATH": "/mnt/data/patents.db",
	})

	cfg, err := config.Load(config.WithConfigPath(path))
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "/mnt/data/patents.db", cfg.Database.PatentsPath)
}

func TestLoad_EnvCORSOriginsCommaSplit(t *testing.T) {
	setEnvVars(t, map[string]string{
		"CORS_ORIGINS": "https://radar.example.com,https://staging.example.com",
	})

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"https://radar.example.com", "https://staging.example.com"},
		cfg.CORS.Origins)
}

func TestLoad_EnvAPICredentials(t *testing.T) {
	setEnvVars(t, map[string]string{
		"OPENAIRE_ACCESS_TOKEN":    "at-123",
		"OPENAIRE_REFRESH_TOKEN":   "rt-456",
		"SEMANTIC_SCHOLAR_API_KEY": "ss-key",
		"EPO_OPS_CONSUMER_KEY":     "epo-key",
		"EPO_OPS_CONSUMER_SECRET":  "epo-secret",
		"CORDIS_API_KEY":           "cordis-key",
	})

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "at-123", cfg.APIs.OpenAIRE.AccessToken)
	assert.Equal(t, "rt-456", cfg.APIs.OpenAIRE.RefreshToken)
	assert.Equal(t, "ss-key", cfg.APIs.SemanticScholar.APIKey)
	assert.Equal(t, "epo-key", cfg.APIs.EPO.ConsumerKey)
	assert.Equal(t, "epo-secret", cfg.APIs.EPO.ConsumerSecret)
	assert.Equal(t, "cordis-key", cfg.APIs.Cordis.APIKey)
}

func TestLoad_ExplicitZeroRPSDisablesLimiting(t *testing.T) {
	path := createTempConfigFile(t, "rate_limit:\n  rps: 0\n")
	cfg, err := config.Load(config.WithConfigPath(path))
	require.NoError(t, err)
	assert.Zero(t, cfg.RateLimit.RPS)
}

func TestLoad_ExplicitMetricsDisabled(t *testing.T) {
	path := createTempConfigFile(t, "metrics:\n  enabled: false\n")
	cfg, err := config.Load(config.WithConfigPath(path))
	require.NoError(t, err)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestMustLoad_Success(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)
	assert.NotPanics(t, func() {
		config.MustLoad(config.WithConfigPath(path))
	})
}

func TestMustLoad_Panic(t *testing.T) {
	assert.Panics(t, func() {
		config.MustLoad(config.WithConfigPath("non_existent.yaml"))
	})
}
