package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".mutprox"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix for mutprox settings.
const envPrefix = "MUTPROX"

// envKeySeparator is the nested key separator in environment variable names.
const envKeySeparator = "_"

// Load loads configuration from file, env vars, and defaults.
// If configPath is non-empty, it is used as the explicit config file path.
// Otherwise, the config file is searched in CWD and $HOME.
// Missing config file is not an error; defaults are used.
func Load(configPath string) (*Config, error) {
	return LoadWith(viper.New(), configPath)
}

// LoadWith loads configuration into v, so that callers can bind command-line
// flags before reading.
func LoadWith(v *viper.Viper, configPath string) (*Config, error) {
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", envKeySeparator))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("policy", DefaultPolicy)
	v.SetDefault("similarity", false)
	v.SetDefault("workers", 0)
	v.SetDefault("estimation", DefaultEstimation)
	v.SetDefault("sample_size", 0)
	v.SetDefault("enforce_disk", false)
	v.SetDefault("chunk_rows", 0)
	v.SetDefault("tmp_dir", "")
	v.SetDefault("save_batches", false)
	v.SetDefault("resume", false)
	v.SetDefault("persist_dir", "")
	v.SetDefault("compression", DefaultCompression)
	v.SetDefault("memory_limit", "")
	v.SetDefault("seed", 0)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)
}
