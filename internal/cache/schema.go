package cache

import (
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}

		if err := createTagCacheTable(tx); err != nil {
			return err
		}
		if err := createMapCacheTable(tx); err != nil {
			return err
		}
		if err := createMetaTable(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Cache schema initialized", map[string]interface{}{
			"version": currentSchemaVersion,
		})

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Cache schema is up to date", map[string]interface{}{
			"version": version,
		})
		return nil
	}

	if version == 0 {
		// Missing version table on an existing file: treat as new.
		return db.initializeSchema()
	}

	db.logger.Info("Running cache migrations", map[string]interface{}{
		"from_version": version,
		"to_version":   currentSchemaVersion,
	})

	// Run migrations sequentially as the schema evolves.

	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createTagCacheTable creates the per-file tag cache. Rows are keyed by
// path and validated against the file's mtime on read.
func createTagCacheTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS tag_cache (
			file_path TEXT PRIMARY KEY,
			mtime_ns INTEGER NOT NULL,
			content_hash TEXT,
			language TEXT NOT NULL,
			tags_json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create tag_cache table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_tag_cache_mtime ON tag_cache(mtime_ns)",
		"CREATE INDEX IF NOT EXISTS idx_tag_cache_language ON tag_cache(language)",
	}
	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createMapCacheTable creates the rendered map cache keyed by request
// signature.
func createMapCacheTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS map_cache (
			signature TEXT PRIMARY KEY,
			map_blob BLOB NOT NULL,
			compressed INTEGER NOT NULL DEFAULT 0,
			token_count INTEGER NOT NULL,
			tag_count INTEGER NOT NULL DEFAULT 0,
			file_count INTEGER NOT NULL,
			created_at_ns INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create map_cache table: %w", err)
	}

	if _, err := tx.Exec(
		"CREATE INDEX IF NOT EXISTS idx_map_cache_created ON map_cache(created_at_ns)",
	); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// createMetaTable creates the key/value metadata table
func createMetaTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create meta table: %w", err)
	}
	return nil
}
