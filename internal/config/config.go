// Package config loads the application configuration from a JSON file with
// environment variable overrides for secrets.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the complete application configuration.
type Config struct {
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Auth       AuthConfig       `json:"auth"`
	Defence    DefenceConfig    `json:"defence"`
	Simulation SimulationConfig `json:"simulation"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	// Host is the database server hostname
	Host string `json:"host"`

	// Port is the database server port
	Port int `json:"port"`

	// Database is the database name
	Database string `json:"database"`

	// Username for database authentication
	Username string `json:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns"`
}

// AuthConfig contains operator authentication settings.
type AuthConfig struct {
	// JWTSecret signs session tokens. Keep it out of config files and set
	// it via SKYFENCE_JWT_SECRET instead.
	JWTSecret string `json:"jwt_secret,omitempty"`

	// TokenDurationHours is how long issued tokens stay valid (default: 24)
	TokenDurationHours int `json:"token_duration_hours"`
}

// DefenceConfig contains decision-engine housekeeping settings. The solver
// itself is pure; these only affect what the transport layer does around it.
type DefenceConfig struct {
	// AuditRetentionHours is how long assigned decisions are kept in the
	// audit table before cleanup (default: 72)
	AuditRetentionHours int `json:"audit_retention_hours"`
}

// SimulationConfig controls the simulated-radar tick driver.
type SimulationConfig struct {
	// TickIntervalSeconds is the real-time pacing of streamed simulations
	// (default: 1, the radar report cadence)
	TickIntervalSeconds int `json:"tick_interval_seconds"`

	// DefaultDurationSeconds is used when a simulation request does not
	// specify a duration (default: 10)
	DefaultDurationSeconds int `json:"default_duration_seconds"`

	// MaxDurationSeconds caps requested simulation lengths (default: 300)
	MaxDurationSeconds int `json:"max_duration_seconds"`
}

// Load reads configuration from a JSON file.
// If the file doesn't exist, returns a default configuration.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	return &cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "skyfence",
			Username:     "skyfence",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Auth: AuthConfig{
			TokenDurationHours: 24,
		},
		Defence: DefenceConfig{
			AuditRetentionHours: 72,
		},
		Simulation: SimulationConfig{
			TickIntervalSeconds:    1,
			DefaultDurationSeconds: 10,
			MaxDurationSeconds:     300,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the
// config. This keeps secrets like passwords out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("SKYFENCE_PORT"); port != "" {
		c.Server.Port = port
	}
	if dbPassword := os.Getenv("SKYFENCE_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if dbHost := os.Getenv("SKYFENCE_DB_HOST"); dbHost != "" {
		c.Database.Host = dbHost
	}
	if secret := os.Getenv("SKYFENCE_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
}
