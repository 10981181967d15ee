package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/smerrill/worktrace/internal/core/fingerprint"
	"github.com/smerrill/worktrace/internal/core/models"
)

// InsertEvent appends a capture event and returns its assigned id
func (db *DB) InsertEvent(e *models.CaptureEvent) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO capture_events
		(timestamp, window_title, process_name, url, hostname, client_code, confidence,
		 capture_type, capture_reason, screenshot_ref, fingerprint, keyboard_active, mouse_active, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	`,
		e.Timestamp.UTC().Format(time.RFC3339),
		e.WindowTitle, e.ProcessName, e.URL, e.Hostname,
		e.ClientCode, e.Confidence,
		string(e.CaptureType), string(e.CaptureReason),
		e.ScreenshotRef, fingerprint.Encode(e.Fingerprint),
		e.KeyboardActive, e.MouseActive,
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("event id: %w", err)
	}
	e.ID = id
	return id, nil
}

// LatestFingerprint returns the most recent non-empty fingerprint, used to
// seed the change detector across restarts. Returns nil when no history
// exists.
func (db *DB) LatestFingerprint() ([]byte, error) {
	var encoded string
	err := db.conn.QueryRow(`
		SELECT fingerprint FROM capture_events
		WHERE fingerprint IS NOT NULL AND fingerprint != ''
		ORDER BY id DESC LIMIT 1
	`).Scan(&encoded)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest fingerprint: %w", err)
	}
	return fingerprint.Decode(encoded), nil
}

// LastEventTime returns the timestamp of the most recent event, zero when
// the store is empty
func (db *DB) LastEventTime() (time.Time, error) {
	var raw string
	err := db.conn.QueryRow(`
		SELECT timestamp FROM capture_events ORDER BY id DESC LIMIT 1
	`).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last event time: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("last event time: %w", err)
	}
	return ts, nil
}

// EventsForDate returns all events for a calendar date, oldest first
func (db *DB) EventsForDate(date time.Time) ([]models.CaptureEvent, error) {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()).UTC()
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := db.conn.Query(`
		SELECT id, timestamp, window_title, process_name, url, hostname,
		       client_code, confidence, capture_type, capture_reason,
		       screenshot_ref, fingerprint, keyboard_active, mouse_active, synced,
		       ai_client_code, ai_confidence, ai_description, ai_model, created_at
		FROM capture_events
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC, id ASC
	`, dayStart.Format(time.RFC3339), dayEnd.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("events for date: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// UnsyncedEvents returns up to limit events not yet delivered, oldest first
func (db *DB) UnsyncedEvents(limit int) ([]models.CaptureEvent, error) {
	rows, err := db.conn.Query(`
		SELECT id, timestamp, window_title, process_name, url, hostname,
		       client_code, confidence, capture_type, capture_reason,
		       screenshot_ref, fingerprint, keyboard_active, mouse_active, synced,
		       ai_client_code, ai_confidence, ai_description, ai_model, created_at
		FROM capture_events
		WHERE synced = 0
		ORDER BY id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("unsynced events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanEvents(rows)
}

// MarkSynced flags a set of events as delivered
func (db *DB) MarkSynced(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin mark synced: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range ids {
		if _, err := tx.Exec(`UPDATE capture_events SET synced = 1 WHERE id = ?`, id); err != nil {
			return fmt.Errorf("mark event %d synced: %w", id, err)
		}
	}

	return tx.Commit()
}

// AttachClassification binds late AI classification fields to an event
func (db *DB) AttachClassification(id int64, clientCode string, confidence float64, description, model string) error {
	res, err := db.conn.Exec(`
		UPDATE capture_events
		SET ai_client_code = ?, ai_confidence = ?, ai_description = ?, ai_model = ?
		WHERE id = ?
	`, clientCode, confidence, description, model, id)
	if err != nil {
		return fmt.Errorf("attach classification: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("attach classification: no event with id %d", id)
	}
	return nil
}

// PurgeSyncedBefore deletes synced events older than the cutoff and returns
// how many were removed. Unsynced events are never purged.
func (db *DB) PurgeSyncedBefore(cutoff time.Time) (int64, error) {
	res, err := db.conn.Exec(`
		DELETE FROM capture_events
		WHERE synced = 1 AND timestamp < ?
	`, cutoff.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("purge events: %w", err)
	}
	return res.RowsAffected()
}

func scanEvents(rows *sql.Rows) ([]models.CaptureEvent, error) {
	var events []models.CaptureEvent
	for rows.Next() {
		var e models.CaptureEvent
		var ts string
		var title, process, eurl, host, code, ctype, ref, fp sql.NullString
		var conf sql.NullFloat64
		var aiCode, aiDesc, aiModel sql.NullString
		var aiConf sql.NullFloat64
		var created sql.NullString

		err := rows.Scan(
			&e.ID, &ts, &title, &process, &eurl, &host,
			&code, &conf, &ctype, &e.CaptureReason,
			&ref, &fp, &e.KeyboardActive, &e.MouseActive, &e.Synced,
			&aiCode, &aiConf, &aiDesc, &aiModel, &created,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			e.Timestamp = t
		}
		e.WindowTitle = title.String
		e.ProcessName = process.String
		e.URL = eurl.String
		e.Hostname = host.String
		e.ClientCode = code.String
		e.Confidence = conf.Float64
		e.CaptureType = models.CaptureType(ctype.String)
		e.ScreenshotRef = ref.String
		e.Fingerprint = fingerprint.Decode(fp.String)
		e.AIClientCode = aiCode.String
		e.AIConfidence = aiConf.Float64
		e.AIDescription = aiDesc.String
		e.AIModel = aiModel.String
		// CURRENT_TIMESTAMP default writes "2006-01-02 15:04:05" in UTC
		if t, err := time.ParseInLocation("2006-01-02 15:04:05", created.String, time.UTC); err == nil {
			e.CreatedAt = t
		}

		events = append(events, e)
	}
	return events, rows.Err()
}
