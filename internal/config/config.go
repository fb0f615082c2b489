// Package config defines the dashboard client's configuration and how it is loaded.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	// BackendURL is the relay backend's scheme://host.
	BackendURL string `koanf:"backend_url"`

	// BasePath prefixes every backend endpoint, e.g. "/socket".
	BasePath string `koanf:"base_path"`

	// ListenAddr is where the operator console listens.
	ListenAddr string `koanf:"listen_addr"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	RequestTimeout    time.Duration `koanf:"request_timeout"`
	StatusRevertDelay time.Duration `koanf:"status_revert_delay"`

	// Locale drives the collation used to sort the player table.
	Locale string `koanf:"locale"`

	Storage Storage `koanf:"storage"`
}

type Storage struct {
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
	DSN    string `koanf:"dsn"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		BackendURL:        "http://localhost:8000",
		BasePath:          "/socket",
		ListenAddr:        ":8090",
		LogLevel:          "info",
		LogFormat:         "console",
		RequestTimeout:    10 * time.Second,
		StatusRevertDelay: 3 * time.Second,
		Locale:            "ru",
		Storage: Storage{
			Driver: "file",
			Path:   defaultStorePath(),
		},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".relay-dashboard", "urls.yaml")
	}
	return filepath.Join(home, ".relay-dashboard", "urls.yaml")
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: backend_url %q must be an http(s) url", ErrInvalidConfig, c.BackendURL)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen_addr must not be empty", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidConfig)
	}
	if c.StatusRevertDelay <= 0 {
		return fmt.Errorf("%w: status_revert_delay must be positive", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("%w: log_format %q (want console or json)", ErrInvalidConfig, c.LogFormat)
	}
	switch c.Storage.Driver {
	case "memory":
	case "file":
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage.path is required for the file driver", ErrInvalidConfig)
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("%w: storage.dsn is required for the postgres driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: storage.driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	return nil
}
