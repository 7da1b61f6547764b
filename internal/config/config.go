// Package config loads gantry configuration from files and environment
// variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings.
type Config struct {
	Targets TargetsConfig `mapstructure:"targets"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TargetsConfig holds inventory-related configuration.
type TargetsConfig struct {
	// File is the path to the target inventory.
	File string `mapstructure:"file"`

	// Default is the target used when none is named on the command line.
	Default string `mapstructure:"default"`
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load loads configuration from the given files and GANTRY_* environment
// variables. Missing files are skipped silently so a bare invocation works
// without any config on disk.
func Load(configPaths ...string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	for _, path := range configPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("GANTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("targets.file", "targets.yaml")
	v.SetDefault("targets.default", "host")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "plain")
	v.SetDefault("logging.file", "")
}
