package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/TechRadar-Intelligence/internal/config"
	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

func TestConfig_Validate_DefaultsAreValid(t *testing.T) {
	t.Parallel()
	assert.NoError(t, config.NewDefaultConfig().Validate())
}

func TestConfig_Validate_InvalidServerPort(t *testing.T) {
	t.Parallel()
	cases := []int{0, -1, 65536, 100000}
	for _, p := range cases {
		p := p
		t.Run("", func(t *testing.T) {
			t.Parallel()
			cfg := config.NewDefaultConfig()
			cfg.Server.Port = p
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "server.port")
			assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
		})
	}
}

func TestConfig_Validate_MissingGleifCachePath(t *testing.T) {
	t.Parallel()
	cfg := config.NewDefaultConfig()
	cfg.Database.GleifCachePath = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gleif_cache_path")
}

func TestConfig_Validate_CPCLevelBounds(t *testing.T) {
	t.Parallel()
	for _, level := range []int{0, 11, -3} {
		cfg := config.NewDefaultConfig()
		cfg.Radar.CPCLevel = level
		require.Error(t, cfg.Validate(), "level=%d", level)
	}
	for _, level := range []int{1, 4, 10} {
		cfg := config.NewDefaultConfig()
		cfg.Radar.CPCLevel = level
		require.NoError(t, cfg.Validate(), "level=%d", level)
	}
}

func TestConfig_Validate_PanelTimeoutPositive(t *testing.T) {
	t.Parallel()
	cfg := config.NewDefaultConfig()
	cfg.Radar.PanelTimeout = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panel_timeout")
}

func TestConfig_Validate_RateLimitBurst(t *testing.T) {
	t.Parallel()
	cfg := config.NewDefaultConfig()
	cfg.RateLimit.RPS = 0 // limiting off: burst is irrelevant
	cfg.RateLimit.Burst = 0
	assert.NoError(t, cfg.Validate())

	cfg = config.NewDefaultConfig()
	cfg.RateLimit.RPS = 5
	cfg.RateLimit.Burst = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit.burst")
}

func TestConfig_Validate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	cfg := config.NewDefaultConfig()
	cfg.Log.Level = "verbose"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
}

func TestConfig_Validate_InvalidLogFormat(t *testing.T) {
	t.Parallel()
	cfg := config.NewDefaultConfig()
	cfg.Log.Format = "text"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.format")
}

func TestApplyDefaults_FillsZeroFields(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 65*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "data/patents.db", cfg.Database.PatentsPath)
	assert.Equal(t, "data/cordis.db", cfg.Database.ProjectsPath)
	assert.Equal(t, "data/api_cache.db", cfg.Database.GleifCachePath)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORS.Origins)
	assert.Equal(t, 30*time.Second, cfg.Radar.PanelTimeout)
	assert.Equal(t, 10, cfg.Radar.DefaultYears)
	assert.Equal(t, 4, cfg.Radar.CPCLevel)
	assert.Equal(t, 15, cfg.Radar.CPCTopN)
	assert.Equal(t, 10000, cfg.Radar.SampleTarget)
	assert.Equal(t, 90*24*time.Hour, cfg.Radar.GleifTTL)
	assert.Equal(t, "techradar", cfg.Metrics.Namespace)
}

func TestApplyDefaults_PreserveExistingValues(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	cfg.Server.Port = 9999
	cfg.Database.PatentsPath = "/srv/patents.db"
	config.ApplyDefaults(cfg)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "/srv/patents.db", cfg.Database.PatentsPath)
}

func TestConfig_PatentsAvailable_Probes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "patents.db")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	cfg := config.NewDefaultConfig()
	cfg.Database.PatentsPath = path
	assert.True(t, cfg.PatentsAvailable())

	cfg.Database.PatentsPath = filepath.Join(dir, "missing.db")
	assert.False(t, cfg.PatentsAvailable())

	cfg.Database.PatentsPath = dir // a directory is not a store
	assert.False(t, cfg.PatentsAvailable())

	cfg.Database.PatentsPath = ""
	assert.False(t, cfg.PatentsAvailable())
}

func TestConfig_ProjectsAvailable_Probes(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "cordis.db")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	cfg := config.NewDefaultConfig()
	cfg.Database.ProjectsPath = path
	assert.True(t, cfg.ProjectsAvailable())

	cfg.Database.ProjectsPath = filepath.Join(dir, "absent.db")
	assert.False(t, cfg.ProjectsAvailable())
}
