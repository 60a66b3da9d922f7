package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the engine needs to stand up its stores.
type Config struct {
	Environment string `yaml:"environment"`
	DatabaseURL string `yaml:"database_url"`
	TablePrefix string `yaml:"table_prefix"`
	BlobDir     string `yaml:"blob_dir"`
	// MigrationsURL is a golang-migrate source URL, e.g. "file://migrations".
	MigrationsURL string `yaml:"migrations_url"`
	// JWKSURL is where the JWT verifier fetches public keys from.
	JWKSURL string `yaml:"jwks_url"`
	Debug   bool   `yaml:"debug"`
}

// Load reads configuration from the environment, after loading a .env file
// when one exists. When CONFIG_FILE points at a YAML file, the file supplies
// base values and the environment overrides them.
func Load() (*Config, error) {
	// Missing .env is fine; production sets real env vars.
	_ = godotenv.Load()

	cfg := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		file, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = file
	}

	cfg.Environment = getEnv("ENVIRONMENT", orDefault(cfg.Environment, "dev"))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.TablePrefix = getEnv("TABLE_PREFIX", cfg.TablePrefix)
	cfg.BlobDir = getEnv("BLOB_DIR", orDefault(cfg.BlobDir, "data/blobs"))
	cfg.MigrationsURL = getEnv("MIGRATIONS_URL", orDefault(cfg.MigrationsURL, "file://migrations"))
	cfg.JWKSURL = getEnv("JWKS_URL", cfg.JWKSURL)
	cfg.Debug = getEnv("DEBUG", getDefaultDebug(cfg.Environment)) == "true"

	return cfg, nil
}

// LoadFile reads configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
