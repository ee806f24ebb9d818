package cache

import (
	"database/sql"
	"fmt"
	"testing"

	"repomap/internal/logging"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	logger := logging.NewLogger(logging.Config{Level: logging.ErrorLevel})
	db, err := Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpenCreatesSchema(t *testing.T) {
	db := newTestDB(t)

	for _, table := range []string{"schema_version", "tag_cache", "map_cache", "meta"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("getSchemaVersion: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpenExistingDatabase(t *testing.T) {
	dir := t.TempDir()
	logger := logging.NewLogger(logging.Config{Level: logging.ErrorLevel})

	db, err := Open(dir, logger)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := db.Exec(
		"INSERT INTO meta (key, value) VALUES ('probe', 'kept')",
	); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(dir, logger)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	var value string
	if err := reopened.QueryRow("SELECT value FROM meta WHERE key='probe'").Scan(&value); err != nil {
		t.Fatalf("read after reopen: %v", err)
	}
	if value != "kept" {
		t.Errorf("value = %q, want kept", value)
	}
}

func TestWithTxCommit(t *testing.T) {
	db := newTestDB(t)

	err := db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO meta (key, value) VALUES ('a', '1')")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	var value string
	if err := db.QueryRow("SELECT value FROM meta WHERE key='a'").Scan(&value); err != nil {
		t.Fatalf("read: %v", err)
	}
	if value != "1" {
		t.Errorf("value = %q, want 1", value)
	}
}

func TestWithTxRollback(t *testing.T) {
	db := newTestDB(t)

	wantErr := fmt.Errorf("boom")
	err := db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO meta (key, value) VALUES ('b', '2')"); err != nil {
			return err
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("WithTx error = %v, want %v", err, wantErr)
	}

	var value string
	err = db.QueryRow("SELECT value FROM meta WHERE key='b'").Scan(&value)
	if err != sql.ErrNoRows {
		t.Errorf("expected rollback, got value %q err %v", value, err)
	}
}
