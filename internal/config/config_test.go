package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

// clearEnv blanks every key Load reads so the host environment cannot leak
// into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"CONFIG_FILE", "ENVIRONMENT", "DATABASE_URL", "TABLE_PREFIX",
		"BLOB_DIR", "MIGRATIONS_URL", "JWKS_URL", "DEBUG",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Environment != "dev" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "dev")
	}
	if cfg.BlobDir != "data/blobs" {
		t.Errorf("BlobDir = %q, want %q", cfg.BlobDir, "data/blobs")
	}
	if cfg.MigrationsURL != "file://migrations" {
		t.Errorf("MigrationsURL = %q, want %q", cfg.MigrationsURL, "file://migrations")
	}
	if !cfg.Debug {
		t.Error("Debug = false, want true outside prod")
	}
}

func TestLoad_ProdDisablesDebug(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Debug {
		t.Error("Debug = true, want false in prod by default")
	}
}

func TestLoad_FileSuppliesBaseEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
environment: staging
database_url: postgres://file-host/rules
table_prefix: staging_
blob_dir: /var/lib/rules/blobs
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("DATABASE_URL", "postgres://env-host/rules")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Environment wins over the file.
	if cfg.DatabaseURL != "postgres://env-host/rules" {
		t.Errorf("DatabaseURL = %q, want env value", cfg.DatabaseURL)
	}
	// Unset env vars fall back to the file.
	if cfg.TablePrefix != "staging_" {
		t.Errorf("TablePrefix = %q, want file value", cfg.TablePrefix)
	}
	if cfg.Environment != "staging" {
		t.Errorf("Environment = %q, want file value", cfg.Environment)
	}
	if cfg.BlobDir != "/var/lib/rules/blobs" {
		t.Errorf("BlobDir = %q, want file value", cfg.BlobDir)
	}
}

func TestLoadFile(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writeConfigFile(t, "jwks_url: https://auth.example.com/jwks.json\ndebug: true\n")
		cfg, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile: %v", err)
		}
		if cfg.JWKSURL != "https://auth.example.com/jwks.json" {
			t.Errorf("JWKSURL = %q", cfg.JWKSURL)
		}
		if !cfg.Debug {
			t.Error("Debug = false, want true")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("LoadFile on missing file returned nil error")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, "environment: [unterminated")
		if _, err := LoadFile(path); err == nil {
			t.Error("LoadFile on malformed yaml returned nil error")
		}
	})
}
