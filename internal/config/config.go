// Package config loads anikino settings from config.yaml and ANIKINO_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mmcdole/anikino/internal/domain"
)

// Config holds all application configuration
type Config struct {
	Providers ProvidersConfig `mapstructure:"providers"`
	Resolver  ResolverConfig  `mapstructure:"resolver"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Store     StoreConfig     `mapstructure:"store"`
	Player    PlayerConfig    `mapstructure:"player"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ProvidersConfig holds the remote API endpoints
type ProvidersConfig struct {
	MetadataURL        string        `mapstructure:"metadata_url"`  // Jikan base URL
	StreamingURL       string        `mapstructure:"streaming_url"` // HiAnime API base URL
	Timeout            time.Duration `mapstructure:"timeout"`
	MetadataRatePerSec float64       `mapstructure:"metadata_rate_per_sec"`
	Proxy              string        `mapstructure:"proxy"`
}

// ResolverConfig holds mirror resolution tuning
type ResolverConfig struct {
	Cooldown        time.Duration `mapstructure:"cooldown"`
	SessionAttempts int           `mapstructure:"session_attempts"` // Cap when resuming a known mirror
	MaxAttempts     int           `mapstructure:"max_attempts"`     // Cap on a cold start, 0 = none
	DefaultCategory string        `mapstructure:"default_category"`
}

// SyncConfig holds background sync settings
type SyncConfig struct {
	AutoLink        bool   `mapstructure:"auto_link"`
	RefreshSchedule string `mapstructure:"refresh_schedule"` // cron spec, empty disables
}

// StoreConfig holds persistence settings
type StoreConfig struct {
	Path string `mapstructure:"path"` // Directory for anikino.db, empty = memory only
}

// PlayerConfig holds media player configuration
type PlayerConfig struct {
	Command   string   `mapstructure:"command"`
	Args      []string `mapstructure:"args"`
	StartFlag string   `mapstructure:"start_flag"` // e.g., "--start=" or "--start-time="
}

// ServerConfig holds the local HTTP API settings
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// Category returns the configured default category
func (r ResolverConfig) Category() domain.Category {
	c, err := domain.ParseCategory(r.DefaultCategory)
	if err != nil {
		return domain.CategorySub
	}
	return c
}

// Load reads config.yaml from dir (if set), the user config directory and
// the working directory. Missing files are fine.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(defaultConfigPath())
	v.AddConfigPath(".")

	// ANIKINO_RESOLVER_COOLDOWN=90s
	v.SetEnvPrefix("ANIKINO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("providers.metadata_url", "https://api.jikan.moe")
	v.SetDefault("providers.streaming_url", "http://localhost:4000")
	v.SetDefault("providers.timeout", 15*time.Second)
	v.SetDefault("providers.metadata_rate_per_sec", 3.0)
	v.SetDefault("providers.proxy", "")

	v.SetDefault("resolver.cooldown", 5*time.Minute)
	v.SetDefault("resolver.session_attempts", 2)
	v.SetDefault("resolver.max_attempts", 0)
	v.SetDefault("resolver.default_category", string(domain.CategorySub))

	v.SetDefault("sync.auto_link", true)
	v.SetDefault("sync.refresh_schedule", "@every 1h")

	v.SetDefault("store.path", defaultDataPath())

	v.SetDefault("player.command", "")
	v.SetDefault("player.args", []string{})
	v.SetDefault("player.start_flag", "")

	v.SetDefault("server.addr", "127.0.0.1:8787")

	v.SetDefault("logging.file", filepath.Join(defaultDataPath(), "anikino.log"))
	v.SetDefault("logging.level", "INFO")
}

// Validate rejects settings the engine cannot run with
func (c *Config) Validate() error {
	if _, err := domain.ParseCategory(c.Resolver.DefaultCategory); err != nil {
		return fmt.Errorf("resolver.default_category: %w", err)
	}
	if c.Resolver.Cooldown < 0 {
		return fmt.Errorf("resolver.cooldown must not be negative")
	}
	if c.Resolver.SessionAttempts < 0 || c.Resolver.MaxAttempts < 0 {
		return fmt.Errorf("resolver attempt caps must not be negative")
	}
	if c.Providers.MetadataURL == "" || c.Providers.StreamingURL == "" {
		return fmt.Errorf("providers.metadata_url and providers.streaming_url are required")
	}
	return nil
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "anikino")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "anikino")
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "anikino")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "anikino")
	}
}
