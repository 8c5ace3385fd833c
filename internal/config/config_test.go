package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultConfig tests the built-in defaults.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Expected database port 5432, got %d", cfg.Database.Port)
	}
	if cfg.Database.Database != "skyfence" {
		t.Errorf("Expected database skyfence, got %s", cfg.Database.Database)
	}
	if cfg.Auth.TokenDurationHours != 24 {
		t.Errorf("Expected token duration 24h, got %d", cfg.Auth.TokenDurationHours)
	}
	if cfg.Defence.AuditRetentionHours != 72 {
		t.Errorf("Expected audit retention 72h, got %d", cfg.Defence.AuditRetentionHours)
	}
	if cfg.Simulation.TickIntervalSeconds != 1 {
		t.Errorf("Expected tick interval 1s, got %d", cfg.Simulation.TickIntervalSeconds)
	}
	if cfg.Simulation.MaxDurationSeconds != 300 {
		t.Errorf("Expected max duration 300s, got %d", cfg.Simulation.MaxDurationSeconds)
	}
}

// TestLoad tests loading from files and fallbacks.
func TestLoad(t *testing.T) {
	t.Run("Missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		if err != nil {
			t.Fatalf("Expected no error for missing file, got %v", err)
		}
		if cfg.Server.Port != "8080" {
			t.Errorf("Expected default port, got %s", cfg.Server.Port)
		}
	})

	t.Run("Save and reload round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "configs", "config.json")

		cfg := DefaultConfig()
		cfg.Server.Port = "9090"
		cfg.Database.Host = "db.internal"
		cfg.Simulation.DefaultDurationSeconds = 42

		if err := cfg.Save(path); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if loaded.Server.Port != "9090" {
			t.Errorf("Expected port 9090, got %s", loaded.Server.Port)
		}
		if loaded.Database.Host != "db.internal" {
			t.Errorf("Expected host db.internal, got %s", loaded.Database.Host)
		}
		if loaded.Simulation.DefaultDurationSeconds != 42 {
			t.Errorf("Expected default duration 42, got %d", loaded.Simulation.DefaultDurationSeconds)
		}
	})

	t.Run("Invalid JSON is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := Load(path); err == nil {
			t.Error("Expected an error for invalid JSON")
		}
	})
}

// TestEnvironmentOverrides tests that env vars win over file values.
func TestEnvironmentOverrides(t *testing.T) {
	t.Run("Port override", func(t *testing.T) {
		t.Setenv("SKYFENCE_PORT", "9999")

		cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Server.Port != "9999" {
			t.Errorf("Expected port 9999 from env, got %s", cfg.Server.Port)
		}
	})

	t.Run("Database credentials override", func(t *testing.T) {
		t.Setenv("SKYFENCE_DB_PASSWORD", "hunter2")
		t.Setenv("SKYFENCE_DB_HOST", "pg.example")

		cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Database.Password != "hunter2" {
			t.Errorf("Expected env password, got %s", cfg.Database.Password)
		}
		if cfg.Database.Host != "pg.example" {
			t.Errorf("Expected env host, got %s", cfg.Database.Host)
		}
	})

	t.Run("JWT secret override", func(t *testing.T) {
		t.Setenv("SKYFENCE_JWT_SECRET", "topsecret")

		cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.Auth.JWTSecret != "topsecret" {
			t.Errorf("Expected env JWT secret, got %s", cfg.Auth.JWTSecret)
		}
	})
}
