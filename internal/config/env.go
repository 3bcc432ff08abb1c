// Package config holds the environment-driven settings shared by every
// blogify subcommand.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config is the base configuration read from BLOGIFY_* variables. Command
// line flags override individual fields.
type Config struct {
	OutputDir   string `env:"BLOGIFY_OUTPUT_DIR" envDefault:"demo"`
	Overwrite   bool   `env:"BLOGIFY_OVERWRITE" envDefault:"false"`
	CatalogPath string `env:"BLOGIFY_CATALOG_PATH"`
	SigningKey  string `env:"BLOGIFY_SIGNING_KEY"`
	PublicKey   string `env:"BLOGIFY_PUBLIC_KEY"`
	LogLevel    string `env:"BLOGIFY_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"BLOGIFY_LOG_FORMAT" envDefault:"console"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load returns the base configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Catalog returns the catalog path, defaulting to catalog.db inside the
// output directory.
func (c Config) Catalog() string {
	if c.CatalogPath != "" {
		return c.CatalogPath
	}
	return filepath.Join(c.OutputDir, "catalog.db")
}
