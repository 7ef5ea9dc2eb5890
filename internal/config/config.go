// Package config loads orchestrator settings from a corebuild.yaml file and
// COREBUILD_* environment variables. Command-line flags override whatever is
// loaded here.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds settings that apply to every corebuild invocation.
type Config struct {
	// Prefix is the shared install root.
	Prefix string `mapstructure:"prefix"`
	// CacheDir holds sources, build trees and the state record.
	CacheDir string `mapstructure:"cache_dir"`
	// Manifest is an optional YAML component manifest merged over the
	// built-in catalog.
	Manifest string `mapstructure:"manifest"`
	// Parallel is the default number of components built concurrently.
	Parallel int `mapstructure:"parallel"`
	// Jobs is the default compile parallelism per component.
	Jobs int `mapstructure:"jobs"`
	// Generator overrides the CMake generator.
	Generator string `mapstructure:"generator"`
	// GitPath points at a non-default git executable.
	GitPath string `mapstructure:"git_path"`
}

// Load reads configuration from the working directory or the user config
// directory. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("corebuild")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(userConfigDir, "corebuild"))
	}

	v.SetEnvPrefix("COREBUILD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults also register the keys so AutomaticEnv can bind them.
	v.SetDefault("prefix", "")
	v.SetDefault("cache_dir", "")
	v.SetDefault("manifest", "")
	v.SetDefault("parallel", 1)
	v.SetDefault("jobs", 0)
	v.SetDefault("generator", "")
	v.SetDefault("git_path", "")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
