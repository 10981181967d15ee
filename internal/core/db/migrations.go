package db

import "fmt"

// migrations is the ordered, append-only list of schema changes. Each entry
// runs in its own transaction exactly once per database; the applied count
// is tracked in schema_version. Rows written before a later migration added
// a column read back as NULL and scan as zero values.
var migrations = []string{
	// 001: capture event log
	`CREATE TABLE capture_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		window_title TEXT,
		process_name TEXT,
		url TEXT,
		hostname TEXT,
		client_code TEXT,
		confidence REAL DEFAULT 0,
		capture_type TEXT NOT NULL DEFAULT 'metadata_only',
		capture_reason TEXT NOT NULL,
		screenshot_ref TEXT,
		fingerprint TEXT,
		keyboard_active BOOLEAN DEFAULT 0,
		mouse_active BOOLEAN DEFAULT 0,
		synced BOOLEAN DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX idx_events_timestamp ON capture_events(timestamp);
	CREATE INDEX idx_events_client_code ON capture_events(client_code);
	CREATE INDEX idx_events_synced ON capture_events(synced);`,

	// 002: sync outbox queue
	`CREATE TABLE sync_queue (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		retry_count INTEGER DEFAULT 0,
		last_error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX idx_queue_status ON sync_queue(status);`,

	// 003: late-bound AI classification fields
	`ALTER TABLE capture_events ADD COLUMN ai_client_code TEXT;
	ALTER TABLE capture_events ADD COLUMN ai_confidence REAL;
	ALTER TABLE capture_events ADD COLUMN ai_description TEXT;
	ALTER TABLE capture_events ADD COLUMN ai_model TEXT;`,
}

// migrate applies any migrations newer than the stored schema version
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var current int
	err = db.conn.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %03d: %w", version, err)
		}

		if _, err := tx.Exec(migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %03d: %w", version, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_version (version) VALUES (?)`, version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %03d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %03d: %w", version, err)
		}
	}

	return nil
}
