// Package config loads feaso settings from TOML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all feaso configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Store      StoreConfig      `toml:"store"`
	Schedule   ScheduleConfig   `toml:"schedule"`
	Daemon     DaemonConfig     `toml:"daemon"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds the project selection and its month range.
type GeneralConfig struct {
	ProjectID  string `toml:"project_id"`
	StartMonth string `toml:"start_month,omitempty"` // "Jan 2025" or "2025-01"
	EndMonth   string `toml:"end_month,omitempty"`
}

// StoreConfig selects the row store.
type StoreConfig struct {
	Driver     string `toml:"driver"` // sqlite or postgres
	Path       string `toml:"path,omitempty"`
	URL        string `toml:"url,omitempty"`
	DebounceMS int    `toml:"debounce_ms"`
}

// ScheduleConfig locates the read-only project schedule. URL wins over Path.
type ScheduleConfig struct {
	Path  string `toml:"path,omitempty"`
	URL   string `toml:"url,omitempty"`
	Token string `toml:"token,omitempty"`
	Watch bool   `toml:"watch"`
}

// DaemonConfig holds the HTTP daemon settings.
type DaemonConfig struct {
	Addr string `toml:"addr"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			ProjectID: "default",
		},
		Store: StoreConfig{
			Driver:     "sqlite",
			DebounceMS: 750,
		},
		Daemon: DaemonConfig{
			Addr: "127.0.0.1:8787",
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// Debounce returns the persistence delay.
func (c Config) Debounce() time.Duration {
	if c.Store.DebounceMS <= 0 {
		return 0
	}
	return time.Duration(c.Store.DebounceMS) * time.Millisecond
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "feaso")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "feaso")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DefaultDBPath returns the SQLite database path used when none is configured.
func DefaultDBPath() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "feaso", "ledger.db")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "feaso", "ledger.db")
}

// Load reads the config file, returning defaults if it doesn't exist, then
// applies environment overrides.
func Load() (Config, error) {
	cfg, err := LoadFile(ConfigPath())
	if err != nil {
		return cfg, err
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

// LoadFile reads one config file over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) //nolint:gosec // user-chosen config path
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads a .env file into the process environment when present.
// Variables already set are kept.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from DATABASE_URL, FEASO_SCHEDULE_URL
// and FEASO_SCHEDULE_TOKEN.
func ApplyEnv(cfg *Config) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Store.URL = url
	}
	if url := os.Getenv("FEASO_SCHEDULE_URL"); url != "" {
		cfg.Schedule.URL = url
	}
	if token := os.Getenv("FEASO_SCHEDULE_TOKEN"); token != "" {
		cfg.Schedule.Token = token
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	return SaveFile(ConfigPath(), cfg)
}

// SaveFile writes the config to path, creating its directory.
func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
