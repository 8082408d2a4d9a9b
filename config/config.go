// Package config loads the server configuration from a YAML file with
// environment-variable overrides. A .env file, if present, is folded into
// the environment before overrides apply.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Directory DirectoryConfig `yaml:"directory"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int `yaml:"port"`
	ShutdownSeconds int `yaml:"shutdown_seconds"`
}

// DatabaseConfig holds the SQLite configuration.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DirectoryConfig tunes the read-through topology cache.
type DirectoryConfig struct {
	CacheTTLSeconds int           `yaml:"cache_ttl_seconds"`
	CacheTTL        time.Duration `yaml:"-"`
}

// SweeperConfig tunes the periodic conflict scan over published plannings.
// The sweeper runs by default; set enabled: false to opt out.
type SweeperConfig struct {
	EnabledFlag     *bool         `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Enabled         bool          `yaml:"-"`
	Interval        time.Duration `yaml:"-"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Load reads the configuration from the given path. A missing file yields
// the defaults; environment variables always win over file values.
func Load(path string) (*Config, error) {
	godotenv.Load()

	var cfg Config
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else {
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
				return nil, err
			}
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ASTREINTE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("ASTREINTE_DB"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ASTREINTE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ASTREINTE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownSeconds <= 0 {
		cfg.Server.ShutdownSeconds = 30
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "astreinte.db"
	}
	if cfg.Directory.CacheTTLSeconds <= 0 {
		cfg.Directory.CacheTTLSeconds = 300
	}
	cfg.Directory.CacheTTL = time.Duration(cfg.Directory.CacheTTLSeconds) * time.Second
	if cfg.Sweeper.IntervalSeconds <= 0 {
		cfg.Sweeper.IntervalSeconds = 3600
	}
	cfg.Sweeper.Interval = time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second
	cfg.Sweeper.Enabled = cfg.Sweeper.EnabledFlag == nil || *cfg.Sweeper.EnabledFlag
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
