// Package config provides configuration loading, defaults, and validation for
// the TechRadar-Intelligence service.
package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/turtacn/TechRadar-Intelligence/pkg/errors"
)

// envBindings maps config keys to their bare production environment names.
// The deployment contract predates this service and carries no prefix, so
// every binding is explicit rather than derived through a key replacer.
var envBindings = map[string]string{
	"server.host":                   "HOST",
	"server.port":                   "PORT",
	"database.patents_path":         "PATENTS_DB_PATH",
	"database.projects_path":        "CORDIS_DB_PATH",
	"database.gleif_cache_path":     "GLEIF_CACHE_DB_PATH",
	"cors.origins":                  "CORS_ORIGINS",
	"apis.openaire.access_token":    "OPENAIRE_ACCESS_TOKEN",
	"apis.openaire.refresh_token":   "OPENAIRE_REFRESH_TOKEN",
	"apis.semantic_scholar.api_key": "SEMANTIC_SCHOLAR_API_KEY",
	"apis.epo.consumer_key":         "EPO_OPS_CONSUMER_KEY",
	"apis.epo.consumer_secret":      "EPO_OPS_CONSUMER_SECRET",
	"apis.cordis.api_key":           "CORDIS_API_KEY",
	"log.level":                     "LOG_LEVEL",
	"log.format":                    "LOG_FORMAT",
}

// newViper builds a pre-configured Viper instance: YAML file type, explicit
// bare-name env bindings, and loader-level defaults for the two fields whose
// zero value is an explicit "off" (see ApplyDefaults).
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	v.SetDefault("rate_limit.rps", DefaultRateLimitRPS)
	v.SetDefault("metrics.enabled", true)
	return v
}

// Option customises a Load call.
type Option func(*loadOptions)

type loadOptions struct {
	configPath string
}

// WithConfigPath makes Load read the YAML file at path before applying
// environment overrides. Without it Load builds the config from environment
// variables and defaults alone.
func WithConfigPath(path string) Option {
	return func(o *loadOptions) { o.configPath = path }
}

// Load builds a Config in ascending precedence: defaults, YAML file (when
// given), environment variables. The result is validated; any error should be
// treated as fatal.
func Load(opts ...Option) (*Config, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	v := newViper()
	if o.configPath != "" {
		v.SetConfigFile(o.configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig,
				fmt.Sprintf("failed to read config file %q", o.configPath))
		}
	}

	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig,
			"failed to unmarshal configuration")
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk. It is intended for
// hot-reloading non-critical settings such as log level and rate-limit
// thresholds; callers are responsible for applying only the safe subset of
// changes at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// A change that fails to parse or validate is dropped without invoking the
// callback, so the application never observes a broken config.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; errors are ignored here since callers Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// It is intended for use in main() where a config-load failure is always fatal.
func MustLoad(opts ...Option) *Config {
	cfg, err := Load(opts...)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
