// Package config loads transitmap configuration from a YAML file with
// .env overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port           int      `yaml:"port" validate:"gt=0,lt=65536"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type PathsConfig struct {
	FeedsDir     string `yaml:"feedsDir" validate:"required"`
	DatabasesDir string `yaml:"databasesDir" validate:"required"`
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	Paths  PathsConfig  `yaml:"paths"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"*"},
		},
		Paths: PathsConfig{
			FeedsDir:     "data/feeds",
			DatabasesDir: "data/databases",
		},
	}
}

// Load reads the YAML config at path (missing file is fine, defaults
// apply), layers .env / .env.local on top, then applies TRANSITMAP_*
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// .env provides base values, .env.local overrides for local
	// development.
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	if v := os.Getenv("TRANSITMAP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TRANSITMAP_PORT %q", v)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("TRANSITMAP_FEEDS_DIR"); v != "" {
		cfg.Paths.FeedsDir = v
	}
	if v := os.Getenv("TRANSITMAP_DATABASES_DIR"); v != "" {
		cfg.Paths.DatabasesDir = v
	}

	validate := validator.New()
	if err := validate.Struct(cfg.Server); err != nil {
		return Config{}, fmt.Errorf("invalid server config: %w", err)
	}
	if err := validate.Struct(cfg.Paths); err != nil {
		return Config{}, fmt.Errorf("invalid paths config: %w", err)
	}
	return cfg, nil
}
