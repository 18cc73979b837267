package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the settings shared by every command.
type Config struct {
	MaxBytes      int      `mapstructure:"max_bytes"`
	LogLevel      string   `mapstructure:"log_level"`
	LogFormat     string   `mapstructure:"log_format"`
	LogCategories []string `mapstructure:"log_categories"`
	Output        string   `mapstructure:"output"`
	Compress      bool     `mapstructure:"compress"`
}

// New returns a viper instance with defaults, search paths and the
// ASTROPHE_ environment prefix set up. A non-empty path pins the file.
func New(path string) *viper.Viper {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("astrophe")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.astrophe")
	}

	v.SetDefault("max_bytes", 0)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_categories", []string{})
	v.SetDefault("output", "table")
	v.SetDefault("compress", false)

	v.SetEnvPrefix("ASTROPHE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file if one exists and decodes the result.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if cfg.MaxBytes < 0 {
		return nil, fmt.Errorf("max_bytes must not be negative, got %d", cfg.MaxBytes)
	}
	switch cfg.Output {
	case "table", "json", "yaml":
	default:
		return nil, fmt.Errorf("unsupported output format: %s", cfg.Output)
	}
	return &cfg, nil
}
