package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "green", cfg.Logger.Colors.Info)
	assert.Equal(t, "", cfg.Engine.CookiePrefix)
	assert.Equal(t, 30*time.Second, cfg.Engine.NavigationTimeout)
	assert.Equal(t, 512, cfg.Engine.SelectorCacheSize)
	assert.Equal(t, 30*time.Second, cfg.Network.Timeout)
	assert.Equal(t, 10, cfg.Network.MaxRedirects)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 800, cfg.Viewport.InnerHeight)
	assert.NoError(t, cfg.Validate(), "defaults must validate")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad log format", func(c *Config) { c.Logger.Format = "xml" }, "logger.format"},
		{"cookie prefix with separator", func(c *Config) { c.Engine.CookiePrefix = "a;b" }, "engine.cookie_prefix"},
		{"negative navigation timeout", func(c *Config) { c.Engine.NavigationTimeout = -time.Second }, "engine.navigation_timeout"},
		{"zero network timeout", func(c *Config) { c.Network.Timeout = 0 }, "network.timeout"},
		{"negative redirects", func(c *Config) { c.Network.MaxRedirects = -1 }, "network.max_redirects"},
		{"negative rate", func(c *Config) { c.Network.RateLimit = -1 }, "network.rate_limit"},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "redis" }, "storage.driver"},
		{"sqlite without dsn", func(c *Config) { c.Storage.Driver = "sqlite" }, "storage.dsn"},
		{"zero viewport", func(c *Config) { c.Viewport.InnerHeight = 0 }, "viewport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("prefix with dot is allowed", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Engine.CookiePrefix = "prefix."
		assert.NoError(t, cfg.Validate())
	})
}

// -- Viper Integration Tests --

func TestNewConfigFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")

	yamlConfig := []byte(`
logger:
  level: debug
  format: json
engine:
  cookie_prefix: "prefix."
  navigation_timeout: 5s
storage:
  driver: sqlite
  dsn: /tmp/zsx.db
network:
  rate_limit: 2.5
`)
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlConfig)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Equal(t, "prefix.", cfg.Engine.CookiePrefix)
	assert.Equal(t, 5*time.Second, cfg.Engine.NavigationTimeout)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, 2.5, cfg.Network.RateLimit)
	assert.Equal(t, 10, cfg.Network.MaxRedirects, "unset keys keep their defaults")
}

func TestNewConfigFromViperInvalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("storage.driver", "postgres")

	_, err := NewConfigFromViper(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestBindEnv(t *testing.T) {
	t.Setenv("ZSX_ENGINE_COOKIE_PREFIX", "env.")
	t.Setenv("ZSX_VIEWPORT_INNER_HEIGHT", "600")

	v := viper.New()
	SetDefaults(v)
	BindEnv(v)

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "env.", cfg.Engine.CookiePrefix)
	assert.Equal(t, 600, cfg.Viewport.InnerHeight)
}
