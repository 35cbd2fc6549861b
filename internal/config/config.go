// Package config handles loading the things.toml configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the client configuration. Values come from the
// config file with THINGS_* environment variables taking precedence,
// so scripts and tests can override without editing files.
type Config struct {
	// Account is the history key identifying the account's change
	// log, obtained from login.
	Account string `toml:"account"`

	// Email is the account email, used for login.
	Email string `toml:"email"`

	// BaseURL overrides the service endpoint.
	BaseURL string `toml:"base-url"`

	// UserAgent is sent with every request.
	UserAgent string `toml:"user-agent"`

	// AppID identifies the committing application.
	AppID string `toml:"app-id"`

	// CacheDir holds the local item table and watermark. Defaults to
	// ~/.local/share/things.
	CacheDir string `toml:"cache-dir"`
}

// Load reads the global config file and applies environment
// overrides. A missing file yields a config of defaults.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}

	applyEnv(cfg)

	if cfg.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		cfg.CacheDir = filepath.Join(home, ".local", "share", "things")
	}

	return cfg, nil
}

// Path returns the location of the global config file.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "things", "config.toml"), nil
}

// Save writes the config to the global config file, creating the
// directory if needed.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config file: %w", err)
	}
	return nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"THINGS_ACCOUNT", &cfg.Account},
		{"THINGS_EMAIL", &cfg.Email},
		{"THINGS_BASE_URL", &cfg.BaseURL},
		{"THINGS_USER_AGENT", &cfg.UserAgent},
		{"THINGS_APP_ID", &cfg.AppID},
		{"THINGS_CACHE_DIR", &cfg.CacheDir},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}
