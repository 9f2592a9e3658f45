// Package config provides configuration loading, defaults, and validation for
// the TechRadar-Intelligence service.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8000

	// DefaultWriteTimeout exceeds the 30s panel budget so a slow radar
	// response is never truncated by the server itself.
	DefaultReadTimeout     = 10 * time.Second
	DefaultWriteTimeout    = 65 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPatentsPath    = "data/patents.db"
	DefaultProjectsPath   = "data/cordis.db"
	DefaultGleifCachePath = "data/api_cache.db"

	DefaultRateLimitRPS   = 10.0
	DefaultRateLimitBurst = 20

	DefaultPanelTimeout = 30 * time.Second
	DefaultYears        = 10
	DefaultCPCLevel     = 4
	DefaultCPCTopN      = 15
	DefaultSampleTarget = 10000
	DefaultGleifTTL     = 90 * 24 * time.Hour

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "techradar"
)

// DefaultCORSOrigins allows the local frontend dev servers.
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
}

// NewDefaultConfig returns a Config populated entirely with platform defaults.
// It always passes Validate.
func NewDefaultConfig() *Config {
	cfg := &Config{
		RateLimit: RateLimitConfig{RPS: DefaultRateLimitRPS},
		Metrics:   MetricsConfig{Enabled: true},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-value field in cfg with the platform default.
// Fields that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins. Metrics.Enabled and
// RateLimit.RPS have meaningful zero values (metrics off, limiting off), so
// their defaults live in the loader where "not set" is still observable.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.PatentsPath == "" {
		cfg.Database.PatentsPath = DefaultPatentsPath
	}
	if cfg.Database.ProjectsPath == "" {
		cfg.Database.ProjectsPath = DefaultProjectsPath
	}
	if cfg.Database.GleifCachePath == "" {
		cfg.Database.GleifCachePath = DefaultGleifCachePath
	}

	// ── CORS ──────────────────────────────────────────────────────────────────
	if len(cfg.CORS.Origins) == 0 {
		cfg.CORS.Origins = append([]string(nil), DefaultCORSOrigins...)
	}

	// ── Rate limit ────────────────────────────────────────────────────────────
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = DefaultRateLimitBurst
	}

	// ── Radar ─────────────────────────────────────────────────────────────────
	if cfg.Radar.PanelTimeout == 0 {
		cfg.Radar.PanelTimeout = DefaultPanelTimeout
	}
	if cfg.Radar.DefaultYears == 0 {
		cfg.Radar.DefaultYears = DefaultYears
	}
	if cfg.Radar.CPCLevel == 0 {
		cfg.Radar.CPCLevel = DefaultCPCLevel
	}
	if cfg.Radar.CPCTopN == 0 {
		cfg.Radar.CPCTopN = DefaultCPCTopN
	}
	if cfg.Radar.SampleTarget == 0 {
		cfg.Radar.SampleTarget = DefaultSampleTarget
	}
	if cfg.Radar.GleifTTL == 0 {
		cfg.Radar.GleifTTL = DefaultGleifTTL
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if len(cfg.Log.OutputPaths) == 0 {
		cfg.Log.OutputPaths = []string{"stdout"}
	}
	if len(cfg.Log.ErrorOutputPaths) == 0 {
		cfg.Log.ErrorOutputPaths = []string{"stderr"}
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
}
