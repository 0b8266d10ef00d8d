// Package config loads zsx settings from defaults, an optional config file
// and ZSX_* environment variables through viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// ZSX_ENGINE_COOKIE_PREFIX.
const EnvPrefix = "ZSX"

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Engine   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	Network  NetworkConfig  `mapstructure:"network" yaml:"network"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Viewport ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	Fixture  FixtureConfig  `mapstructure:"fixture" yaml:"fixture"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig names the terminal colour of each level in console output.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig tunes the swap engine.
type EngineConfig struct {
	// CookiePrefix is prepended to every cookie name written by zx-cookie-set.
	CookiePrefix      string        `mapstructure:"cookie_prefix" yaml:"cookie_prefix"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	SelectorCacheSize int           `mapstructure:"selector_cache_size" yaml:"selector_cache_size"`
}

// NetworkConfig configures the HTTP client.
type NetworkConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRedirects int           `mapstructure:"max_redirects" yaml:"max_redirects"`
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst" yaml:"rate_burst"`
}

// StorageConfig selects the persistence backend for form state.
type StorageConfig struct {
	Driver string `mapstructure:"driver" yaml:"driver"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// ViewportConfig describes the simulated window.
type ViewportConfig struct {
	InnerWidth  int `mapstructure:"inner_width" yaml:"inner_width"`
	InnerHeight int `mapstructure:"inner_height" yaml:"inner_height"`
}

// FixtureConfig configures the demo site served by `zsx serve`.
type FixtureConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Manifest string `mapstructure:"manifest" yaml:"manifest"`
}

// NewDefaultConfig returns the configuration produced by defaults alone.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "zsx")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Engine --
	v.SetDefault("engine.cookie_prefix", "")
	v.SetDefault("engine.navigation_timeout", "30s")
	v.SetDefault("engine.selector_cache_size", 512)

	// -- Network --
	v.SetDefault("network.timeout", "30s")
	v.SetDefault("network.max_redirects", 10)
	v.SetDefault("network.user_agent", "zsx/1.0")
	v.SetDefault("network.rate_limit", 0)
	v.SetDefault("network.rate_burst", 1)

	// -- Storage --
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.dsn", "")

	// -- Viewport --
	v.SetDefault("viewport.inner_width", 1280)
	v.SetDefault("viewport.inner_height", 800)

	// -- Fixture --
	v.SetDefault("fixture.addr", "127.0.0.1:8080")
	v.SetDefault("fixture.manifest", "")
}

// BindEnv makes every key overridable through ZSX_<SECTION>_<KEY>.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper unmarshals and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logger.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be \"console\" or \"json\", got %q", c.Logger.Format)
	}
	if strings.ContainsAny(c.Engine.CookiePrefix, "=;, \t") {
		return fmt.Errorf("engine.cookie_prefix must not contain separators or whitespace")
	}
	if c.Engine.NavigationTimeout < 0 {
		return fmt.Errorf("engine.navigation_timeout must not be negative")
	}
	if c.Network.Timeout <= 0 {
		return fmt.Errorf("network.timeout must be positive")
	}
	if c.Network.MaxRedirects < 0 {
		return fmt.Errorf("network.max_redirects must not be negative")
	}
	if c.Network.RateLimit < 0 {
		return fmt.Errorf("network.rate_limit must not be negative")
	}
	switch strings.ToLower(c.Storage.Driver) {
	case "memory":
	case "sqlite":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("storage.driver must be \"memory\" or \"sqlite\", got %q", c.Storage.Driver)
	}
	if c.Viewport.InnerHeight <= 0 || c.Viewport.InnerWidth <= 0 {
		return fmt.Errorf("viewport dimensions must be positive integers")
	}
	return nil
}
