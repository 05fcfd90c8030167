package app

import (
	"errors"
	"strings"
	"time"
)

// DefaultRemoteTimeout bounds a remote plan request.
const DefaultRemoteTimeout = 10 * time.Second

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	CatalogPath string // .hcl file or directory, .csv export or .snapshot
	DatabaseURL string // sqlite:PATH, postgres://... or empty for memory

	Addr           string
	Program        string
	Completed      []string
	MaxCredits     *float64 // nil plans with the engine default
	ExportSnapshot string
	RemoteURL      string
	RemoteTimeout  time.Duration

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	cfg.Program = strings.TrimSpace(cfg.Program)

	if cfg.MaxCredits != nil && *cfg.MaxCredits < 0 {
		return nil, errors.New("max credits cannot be negative")
	}
	if cfg.RemoteURL != "" {
		if cfg.Program == "" {
			return nil, errors.New("a program is required for remote planning")
		}
		if cfg.ExportSnapshot != "" || cfg.Addr != "" {
			return nil, errors.New("remote planning cannot be combined with serving or exporting")
		}
	}
	if cfg.Addr == "" && cfg.Program == "" && cfg.ExportSnapshot == "" {
		return nil, errors.New("nothing to do: set an address to serve, a program to plan or a snapshot path to export")
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = DefaultRemoteTimeout
	}

	return &cfg, nil
}
