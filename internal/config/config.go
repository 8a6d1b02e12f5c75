// Package config provides configuration management for the journal.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	errs "zellax/internal/errors"
	"zellax/internal/journal"
)

// Config holds all application configuration.
type Config struct {
	Journal JournalConfig `mapstructure:"journal"`
	Media   MediaConfig   `mapstructure:"media"`
	Log     LogConfig     `mapstructure:"log"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Watch   WatchConfig   `mapstructure:"watch"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// JournalConfig holds journal-related configuration.
type JournalConfig struct {
	UserID        string `mapstructure:"user_id"`
	Currency      string `mapstructure:"currency"`
	DefaultWindow string `mapstructure:"default_window"` // 1D, 1W, 1M, 3M, ALL
	Database      string `mapstructure:"database"`       // empty means <dir>/journal.db
}

// MediaConfig bounds stored screenshots.
type MediaConfig struct {
	MaxImageBytes int `mapstructure:"max_image_bytes"`
	MaxDimension  int `mapstructure:"max_dimension"`
	MinQuality    int `mapstructure:"min_quality"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
}

// AuditConfig holds audit trail configuration.
type AuditConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// WatchConfig holds dashboard watch-mode configuration.
type WatchConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/zellax"
	}
	return filepath.Join(home, ".config", "zellax")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by the commented template before loading.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if err := createTemplateConfig(configDir); err != nil {
			return nil, err
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
	}

	cfg := &Config{Dir: configDir}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}

	dotenv, err := readDotEnv(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	applyEnvOverrides(cfg, dotenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration rooted at configDir, without
// touching the filesystem.
func Default(configDir string) *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{Dir: configDir}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("journal.user_id", "default")
	v.SetDefault("journal.currency", "$")
	v.SetDefault("journal.default_window", "ALL")
	v.SetDefault("journal.database", "")

	v.SetDefault("media.max_image_bytes", 1<<20)
	v.SetDefault("media.max_dimension", 2048)
	v.SetDefault("media.min_quality", 40)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", false)
	v.SetDefault("log.file", true)
	v.SetDefault("log.max_size", 20)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)

	v.SetDefault("audit.enabled", true)

	v.SetDefault("watch.interval", "30s")
	v.SetDefault("watch.metrics_addr", "")
}

// readDotEnv reads <configDir>/.env if present. The process environment is
// left untouched.
func readDotEnv(configDir string) (map[string]string, error) {
	path := filepath.Join(configDir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	return godotenv.Read(path)
}

// applyEnvOverrides applies ZELLAX_* variables. The process environment wins
// over the .env file.
func applyEnvOverrides(cfg *Config, dotenv map[string]string) {
	lookup := func(key string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}

	if v := lookup("ZELLAX_USER_ID"); v != "" {
		cfg.Journal.UserID = v
	}
	if v := lookup("ZELLAX_DB_PATH"); v != "" {
		cfg.Journal.Database = v
	}
	if v := lookup("ZELLAX_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := lookup("ZELLAX_METRICS_ADDR"); v != "" {
		cfg.Watch.MetricsAddr = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Journal.UserID) == "" {
		return fmt.Errorf("%w: journal.user_id must not be empty", errs.ErrConfigInvalid)
	}
	if _, err := journal.ParseWindow(c.Journal.DefaultWindow); err != nil {
		return fmt.Errorf("%w: journal.default_window: %v", errs.ErrConfigInvalid, err)
	}

	if c.Media.MaxImageBytes < 1024 {
		return fmt.Errorf("%w: media.max_image_bytes must be at least 1024", errs.ErrConfigInvalid)
	}
	if c.Media.MaxDimension < 64 {
		return fmt.Errorf("%w: media.max_dimension must be at least 64", errs.ErrConfigInvalid)
	}
	if c.Media.MinQuality < 1 || c.Media.MinQuality > 100 {
		return fmt.Errorf("%w: media.min_quality must be between 1 and 100", errs.ErrConfigInvalid)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: invalid log level: %s (must be debug, info, warn or error)", errs.ErrConfigInvalid, c.Log.Level)
	}

	if c.Watch.Interval < time.Second {
		return fmt.Errorf("%w: watch.interval must be at least 1s", errs.ErrConfigInvalid)
	}

	return nil
}

// DatabasePath returns the SQLite file backing the journal.
func (c *Config) DatabasePath() string {
	if c.Journal.Database != "" {
		return expandHome(c.Journal.Database)
	}
	return filepath.Join(c.Dir, "journal.db")
}

// LogPath returns the rotating application log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Dir, "logs", "zellax.log")
}

// AuditPath returns the audit trail file.
func (c *Config) AuditPath() string {
	return filepath.Join(c.Dir, "logs", "audit.log")
}

// Window returns the parsed default dashboard window.
func (c *Config) Window() journal.Window {
	w, err := journal.ParseWindow(c.Journal.DefaultWindow)
	if err != nil {
		return journal.WindowAll
	}
	return w
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
