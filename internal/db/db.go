// Package db provides PostgreSQL access for the reference catalog, operator
// accounts and the decision audit trail. The intercept core never touches
// this package directly; it receives flattened offering snapshots from the
// catalog repository.
package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/mkalvans/skyfence/internal/config"
)

//go:embed schema.sql
var schemaSQL embed.FS

// DB wraps a database connection with helper methods.
type DB struct {
	*sql.DB
	config config.DatabaseConfig
}

// Connect establishes a connection to the PostgreSQL database.
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
		cfg.SSLMode,
	)

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		DB:     sqlDB,
		config: cfg,
	}, nil
}

// InitSchema creates the schema and seeds the reference catalog if needed.
// This should be called once at application startup; the statements are
// idempotent.
func (db *DB) InitSchema(ctx context.Context) error {
	schemaBytes, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %w", err)
	}

	if _, err := db.ExecContext(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// CleanupOldDecisions removes audit rows older than maxAge. Should be called
// periodically to prevent unbounded growth.
func (db *DB) CleanupOldDecisions(ctx context.Context, maxAge time.Duration) error {
	cutoff := time.Now().UTC().Add(-maxAge)

	_, err := db.ExecContext(ctx,
		`DELETE FROM decision_audit WHERE created_at < $1`,
		cutoff,
	)
	if err != nil {
		return fmt.Errorf("failed to delete old decisions: %w", err)
	}

	return nil
}

// GetStats returns database statistics for the status endpoint.
func (db *DB) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var siteCount int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sites`,
	).Scan(&siteCount)
	if err != nil {
		return nil, err
	}
	stats["sites"] = siteCount

	var interceptorCount int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interceptor_types`,
	).Scan(&interceptorCount)
	if err != nil {
		return nil, err
	}
	stats["interceptor_types"] = interceptorCount

	var offeringCount int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM site_interceptors`,
	).Scan(&offeringCount)
	if err != nil {
		return nil, err
	}
	stats["offerings"] = offeringCount

	var auditCount int64
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM decision_audit`,
	).Scan(&auditCount)
	if err != nil {
		return nil, err
	}
	stats["audited_decisions"] = auditCount

	return stats, nil
}
