package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roryl/zsx/config"
	"github.com/roryl/zsx/network"
	"github.com/roryl/zsx/observability"
)

type configKey struct{}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "zsx",
		Short:         "Partial page swaps for plain links and forms",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cfgFile)
			if err != nil {
				return err
			}
			observability.Initialize(cfg.Logger, zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
			observability.GetLogger().Debug("configuration loaded",
				zap.String("storage", cfg.Storage.Driver),
				zap.Duration("navigation_timeout", cfg.Engine.NavigationTimeout))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}
	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./zsx.yaml)")

	cmd.AddCommand(newServeCmd(), newSwapCmd(), newCheckCmd())
	return cmd
}

// loadConfig layers defaults, the config file and ZSX_* variables, which may
// also come from a .env file in the working directory.
func loadConfig(path string) (*config.Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	config.SetDefaults(v)
	config.BindEnv(v)
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("zsx")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return config.NewConfigFromViper(v)
}

func configFrom(cmd *cobra.Command) *config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(*config.Config); ok {
		return cfg
	}
	return config.NewDefaultConfig()
}

// clientOptions maps the network section onto client options.
func clientOptions(cfg *config.Config) []network.ClientOption {
	opts := []network.ClientOption{
		network.WithTimeout(cfg.Network.Timeout),
		network.WithMaxRedirects(cfg.Network.MaxRedirects),
		network.WithUserAgent(cfg.Network.UserAgent),
	}
	if cfg.Network.RateLimit > 0 {
		opts = append(opts, network.WithRateLimit(cfg.Network.RateLimit, cfg.Network.RateBurst))
	}
	return opts
}

func newClient(cfg *config.Config, jar http.CookieJar, logger *zap.Logger) (*network.Client, error) {
	opts := append(clientOptions(cfg), network.WithCookieJar(jar), network.WithLogger(logger))
	return network.NewClient(opts...)
}
