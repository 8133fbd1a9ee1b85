// Package config loads server configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/replaylab/sim-backend/pkg/types"
	"github.com/spf13/viper"
)

// Config is the full backend configuration
type Config struct {
	LogLevel string             `mapstructure:"log_level"`
	Server   types.ServerConfig `mapstructure:"server"`
	Data     types.DataConfig   `mapstructure:"data"`
}

// Load reads configuration from an optional YAML file plus SIM_*
// environment variables, falling back to defaults. A missing file is
// fine unless a path was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.websocket_path", "/ws")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.max_connections", 100)
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("data.data_dir", "./data")
	v.SetDefault("data.fetch_base_url", "")

	v.SetEnvPrefix("SIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
