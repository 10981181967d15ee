package db

import (
	"os"
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worktrace-test.db")
	database, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestNew(t *testing.T) {
	database := testDB(t)

	// Verify schema initialized
	var count int
	err := database.conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to query schema: %v", err)
	}

	// Should have: capture_events, sync_queue, schema_version
	if count < 3 {
		t.Errorf("Expected at least 3 tables, got %d", count)
	}
}

func TestNew_WALMode(t *testing.T) {
	database := testDB(t)

	var journalMode string
	err := database.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}

	if journalMode != "wal" {
		t.Errorf("Expected WAL mode, got %s", journalMode)
	}
}

func TestNew_CreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deeper")
	path := filepath.Join(dir, "test.db")

	database, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer func() { _ = database.Close() }()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Parent directory not created: %v", err)
	}
}

func TestMigrate_RecordsVersions(t *testing.T) {
	database := testDB(t)

	var version int
	err := database.conn.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version)
	if err != nil {
		t.Fatalf("Failed to read schema version: %v", err)
	}

	if version != len(migrations) {
		t.Errorf("Expected schema version %d, got %d", len(migrations), version)
	}
}

func TestMigrate_IdempotentOnReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	database, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := database.Exec(`INSERT INTO capture_events (timestamp, capture_reason) VALUES ('2026-01-05T09:00:00Z', 'first_capture')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_ = database.Close()

	// Reopening must not re-run migrations or lose data
	database, err = New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = database.Close() }()

	var count int
	if err := database.QueryRow("SELECT COUNT(*) FROM capture_events").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 event after reopen, got %d", count)
	}
}

func TestMigrate_OldRowsReadWithZeroValues(t *testing.T) {
	database := testDB(t)

	// A row inserted without the migration-003 columns reads back with
	// zero values, not an error
	_, err := database.Exec(`
		INSERT INTO capture_events (timestamp, capture_reason)
		VALUES ('2026-01-05T09:00:00Z', 'first_capture')
	`)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	events, err := database.UnsyncedEvents(10)
	if err != nil {
		t.Fatalf("UnsyncedEvents: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].AIClientCode != "" || events[0].AIConfidence != 0 {
		t.Errorf("Expected zero-value classification fields, got %q/%v",
			events[0].AIClientCode, events[0].AIConfidence)
	}
}
