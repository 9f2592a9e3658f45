// Package config defines all configuration structures for the
// TechRadar-Intelligence service. No I/O or parsing logic lives here — only
// plain data types, validation, and data-source availability probes.
package config

import (
	"os"
	"time"

	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables. WriteTimeout must stay above the
// panel budget or long radar requests are cut off mid-response.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds the paths of the three SQLite files. The patent and
// project stores are read-only snapshots shipped alongside the binary; the
// GLEIF cache is created on first start.
type DatabaseConfig struct {
	PatentsPath    string `mapstructure:"patents_path"`
	ProjectsPath   string `mapstructure:"projects_path"`
	GleifCachePath string `mapstructure:"gleif_cache_path"`
}

// OpenAIREConfig holds OpenAIRE API credentials. Both tokens are optional;
// the publication search works anonymously with lower rate limits.
type OpenAIREConfig struct {
	AccessToken  string `mapstructure:"access_token"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// SemanticScholarConfig holds the optional Semantic Scholar API key.
type SemanticScholarConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// EPOConfig holds EPO OPS credentials (reserved for live patent lookups).
type EPOConfig struct {
	ConsumerKey    string `mapstructure:"consumer_key"`
	ConsumerSecret string `mapstructure:"consumer_secret"`
}

// CordisConfig holds the optional CORDIS API key.
type CordisConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// APIConfig groups all upstream API credentials.
type APIConfig struct {
	OpenAIRE        OpenAIREConfig        `mapstructure:"openaire"`
	SemanticScholar SemanticScholarConfig `mapstructure:"semantic_scholar"`
	EPO             EPOConfig             `mapstructure:"epo"`
	Cordis          CordisConfig          `mapstructure:"cordis"`
}

// CORSConfig holds the allowed browser origins.
type CORSConfig struct {
	Origins []string `mapstructure:"origins"`
}

// RateLimitConfig holds per-client request limiting. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// RadarConfig holds the analysis tunables shared by the panel engines.
type RadarConfig struct {
	PanelTimeout time.Duration `mapstructure:"panel_timeout"`
	DefaultYears int           `mapstructure:"default_years"`
	CPCLevel     int           `mapstructure:"cpc_level"`
	CPCTopN      int           `mapstructure:"cpc_top_n"`
	SampleTarget int           `mapstructure:"sample_target"`
	GleifTTL     time.Duration `mapstructure:"gleif_ttl"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string   `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string   `mapstructure:"format"` // "json" | "console"
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// MetricsConfig holds prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the service.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	APIs      APIConfig       `mapstructure:"apis"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Radar     RadarConfig     `mapstructure:"radar"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Availability probes
// ─────────────────────────────────────────────────────────────────────────────

// PatentsAvailable reports whether the patent SQLite file exists on disk.
// The service runs degraded without it; panels emit their own warnings.
func (c *Config) PatentsAvailable() bool {
	return fileExists(c.Database.PatentsPath)
}

// ProjectsAvailable reports whether the CORDIS SQLite file exists on disk.
func (c *Config) ProjectsAvailable() bool {
	return fileExists(c.Database.ProjectsPath)
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.Newf(errors.CodeInvalidConfig,
			"server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New(errors.CodeInvalidConfig,
			"server.shutdown_timeout must be positive")
	}

	if c.Database.GleifCachePath == "" {
		return errors.New(errors.CodeInvalidConfig,
			"database.gleif_cache_path is required")
	}

	if c.Radar.PanelTimeout <= 0 {
		return errors.New(errors.CodeInvalidConfig,
			"radar.panel_timeout must be positive")
	}
	if c.Radar.DefaultYears < 1 {
		return errors.Newf(errors.CodeInvalidConfig,
			"radar.default_years must be >= 1, got %d", c.Radar.DefaultYears)
	}
	if c.Radar.CPCLevel < 1 || c.Radar.CPCLevel > 10 {
		return errors.Newf(errors.CodeInvalidConfig,
			"radar.cpc_level %d is out of range [1, 10]", c.Radar.CPCLevel)
	}
	if c.Radar.CPCTopN < 2 {
		return errors.Newf(errors.CodeInvalidConfig,
			"radar.cpc_top_n must be >= 2, got %d", c.Radar.CPCTopN)
	}
	if c.Radar.SampleTarget < 1 {
		return errors.Newf(errors.CodeInvalidConfig,
			"radar.sample_target must be >= 1, got %d", c.Radar.SampleTarget)
	}
	if c.Radar.GleifTTL <= 0 {
		return errors.New(errors.CodeInvalidConfig,
			"radar.gleif_ttl must be positive")
	}

	if c.RateLimit.RPS < 0 {
		return errors.Newf(errors.CodeInvalidConfig,
			"rate_limit.rps must be >= 0, got %g", c.RateLimit.RPS)
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		return errors.Newf(errors.CodeInvalidConfig,
			"rate_limit.burst must be >= 1 when limiting is enabled, got %d", c.RateLimit.Burst)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.Newf(errors.CodeInvalidConfig,
			"log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.Newf(errors.CodeInvalidConfig,
			"log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
