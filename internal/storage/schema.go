package storage

import (
	"database/sql"
	"fmt"
	"log"
)

const currentSchemaVersion = 1

// InitSchema creates all required tables and indexes. It's idempotent -
// safe to call multiple times.
func InitSchema(db *sql.DB) error {
	version, err := getSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}
	if version >= currentSchemaVersion {
		log.Printf("[Storage] schema already at version %d, skipping initialization", version)
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := createTables(tx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if err := createIndexes(tx); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema initialization: %w", err)
	}
	log.Printf("[Storage] schema initialized to version %d", currentSchemaVersion)
	return nil
}

func createTables(tx *sql.Tx) error {
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	// nodes: one row per test node, keyed by its dense graph index.
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS nodes (
			id INTEGER PRIMARY KEY,
			test_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			service TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create nodes table: %w", err)
	}

	// node_history: append-only status transition log, millisecond precision.
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS node_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			node INTEGER NOT NULL,
			status TEXT NOT NULL,
			data TEXT,
			created_at INTEGER NOT NULL DEFAULT (CAST((JULIANDAY('now') - 2440587.5) * 86400000 AS INTEGER)),
			FOREIGN KEY (node) REFERENCES nodes(id)
		)
	`); err != nil {
		return fmt.Errorf("failed to create node_history table: %w", err)
	}

	// graph: DOT snapshot log, written after every state-changing event.
	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS graph (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			dot TEXT NOT NULL,
			created_at INTEGER NOT NULL DEFAULT (CAST((JULIANDAY('now') - 2440587.5) * 86400000 AS INTEGER))
		)
	`); err != nil {
		return fmt.Errorf("failed to create graph table: %w", err)
	}

	return nil
}

func createIndexes(tx *sql.Tx) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_node_history_node ON node_history(node, created_at)`,
	}
	for _, idx := range indexes {
		if _, err := tx.Exec(idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func getSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		// Table might not exist yet.
		return 0, nil
	}
	return version, nil
}

func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}
