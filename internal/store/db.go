package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Config holds database configuration.
type Config struct {
	Path          string
	RetentionDays int
}

// DB wraps a sql.DB with retention settings.
type DB struct {
	db            *sql.DB
	retentionDays int
}

// RawDB returns the underlying *sql.DB for components that need direct access.
func (d *DB) RawDB() *sql.DB {
	return d.db
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Open creates the directory, opens the SQLite database, sets WAL mode and
// pragmas, and ensures all tables exist.
func Open(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is empty")
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// In WAL mode SQLite supports concurrent readers with a single writer.
	// Allow multiple connections so reads don't block behind writes.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if err := createTables(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	retDays := cfg.RetentionDays
	if retDays <= 0 {
		retDays = 90
	}

	d := &DB{db: sqlDB, retentionDays: retDays}

	// Run cleanup at startup so old data is purged even if the process never
	// lives long enough for the periodic cron job to fire.
	if err := d.Cleanup(); err != nil {
		fmt.Fprintf(os.Stderr, "store: startup cleanup failed (non-fatal): %v\n", err)
	}

	return d, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		// One row per pg_num mutation the control loop issued or would have
		// issued under warn mode (spec §4.5 step 6).
		`CREATE TABLE IF NOT EXISTS sizing_decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			pool_id INTEGER NOT NULL,
			pool_name TEXT NOT NULL,
			mode TEXT NOT NULL,
			pg_num_target INTEGER NOT NULL,
			pg_num_final INTEGER NOT NULL,
			capacity_ratio REAL NOT NULL,
			effective_target_ratio REAL NOT NULL,
			applied INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sizing_decisions_pool_ts ON sizing_decisions(pool_id, timestamp)`,

		// Capacity-ratio time series sampled once per iteration (backs
		// internal/metrics.History).
		`CREATE TABLE IF NOT EXISTS pool_ratio_samples (
			id INTEGER PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			pool_id INTEGER NOT NULL,
			capacity_ratio REAL NOT NULL,
			effective_target_ratio REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pool_ratio_samples_pool_ts ON pool_ratio_samples(pool_id, timestamp)`,

		// One row per health-check code present in each published batch, for
		// post-hoc review of when a warning was raised; a check that clears
		// leaves no row.
		`CREATE TABLE IF NOT EXISTS health_check_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp INTEGER NOT NULL,
			code TEXT NOT NULL,
			severity TEXT NOT NULL,
			summary TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_health_check_events_ts ON health_check_events(timestamp)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Cleanup deletes rows older than retentionDays across all tables.
func (d *DB) Cleanup() error {
	cutoff := time.Now().AddDate(0, 0, -d.retentionDays).Unix()

	stmts := []string{
		"DELETE FROM sizing_decisions WHERE timestamp < ?",
		"DELETE FROM pool_ratio_samples WHERE timestamp < ?",
		"DELETE FROM health_check_events WHERE timestamp < ?",
	}

	for _, s := range stmts {
		if _, err := d.db.Exec(s, cutoff); err != nil {
			return fmt.Errorf("cleanup %q: %w", s[:30], err)
		}
	}
	return nil
}
