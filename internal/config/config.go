// Package config loads the tool configuration: where mod distributions
// live, which game copy to target, and presentation preferences.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the top-level commodctl configuration.
type Config struct {
	// DistributionDir is the directory scanned for mod packages.
	DistributionDir string `mapstructure:"distribution_dir" yaml:"distribution_dir"`
	// GameDir is the default game copy to probe and install into.
	GameDir string `mapstructure:"game_dir" yaml:"game_dir"`
	// Language is the preferred mod language.
	Language string `mapstructure:"language" yaml:"language"`
	// MonitorWidth picks the resolution ladder written on remaster
	// installs.
	MonitorWidth int `mapstructure:"monitor_width" yaml:"monitor_width"`
	// LogFile receives the structured log; empty logs to stderr only.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`
	// Verbose lowers the log level to debug.
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "commodctl", "config.yml")
}

// Load reads the config from disk or environment. A missing file is fine;
// flags and env cover everything.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("language", "ru")
	v.SetDefault("monitor_width", 1920)

	v.SetEnvPrefix("COMMODCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = os.Getenv("COMMODCTL_CONFIG")
	}
	if path == "" {
		path = DefaultPath()
	}
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if !os.IsNotExist(err) {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.DistributionDir = ExpandHome(cfg.DistributionDir)
	cfg.GameDir = ExpandHome(cfg.GameDir)
	return &cfg, nil
}

// Save writes the config as YAML to path, creating parent directories.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	return enc.Encode(cfg)
}

// ExpandHome expands a leading ~/ in a path.
func ExpandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
