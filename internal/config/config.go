// Package config loads flowdeck configuration from the config file,
// environment, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config is the resolved flowdeck configuration.
type Config struct {
	// ServerURL is the base URL the client talks to.
	ServerURL string `mapstructure:"server_url"`

	// DataDir holds the cache files, session token, and timer settings.
	DataDir string `mapstructure:"data_dir"`

	// ListenAddr is the address `flowdeck serve` binds to.
	ListenAddr string `mapstructure:"listen_addr"`

	// DBPath is the server's SQLite database file.
	DBPath string `mapstructure:"db_path"`

	// LogFile receives server logs; empty means stderr only.
	LogFile string `mapstructure:"log_file"`

	// SyncIntervalSeconds is the daemon's periodic sync interval.
	SyncIntervalSeconds int `mapstructure:"sync_interval_seconds"`
}

// DefaultDataDir returns ~/.flowdeck, falling back to the working directory
// when the home directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowdeck"
	}
	return filepath.Join(home, ".flowdeck")
}

// Load reads configuration from <dataDir>/config.yaml plus FLOWDECK_*
// environment variables. A missing config file is fine; defaults apply.
func Load() (*Config, error) {
	dataDir := DefaultDataDir()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)
	v.SetEnvPrefix("FLOWDECK")
	v.AutomaticEnv()

	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("db_path", filepath.Join(dataDir, "flowdeck.db"))
	v.SetDefault("log_file", "")
	v.SetDefault("sync_interval_seconds", 60)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// CacheDir returns the directory the stores persist into.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// TokenPath returns the file the session token is stored in.
func (c *Config) TokenPath() string {
	return filepath.Join(c.DataDir, "session")
}

// TimerSettingsPath returns the pomodoro settings file.
func (c *Config) TimerSettingsPath() string {
	return filepath.Join(c.DataDir, "pomodoro.yaml")
}
