package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smerrill/worktrace/internal/core/models"
)

// Enqueue adds a payload to the sync queue in pending state
func (db *DB) Enqueue(itemType models.QueueItemType, payload json.RawMessage) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sync_queue (event_type, payload, status)
		VALUES (?, ?, ?)
	`, string(itemType), string(payload), string(models.QueuePending))
	if err != nil {
		return 0, fmt.Errorf("enqueue: %w", err)
	}
	return res.LastInsertId()
}

// PendingItems returns up to limit pending queue items, oldest first.
// Failed items are re-eligible: each drain pass picks them up again until
// they succeed or age out of retention.
func (db *DB) PendingItems(limit int) ([]models.SyncQueueItem, error) {
	rows, err := db.conn.Query(`
		SELECT id, event_type, payload, status, retry_count, last_error, created_at, updated_at
		FROM sync_queue
		WHERE status IN ('pending', 'failed')
		ORDER BY id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []models.SyncQueueItem
	for rows.Next() {
		var item models.SyncQueueItem
		var itemType, status, payload string
		var lastErr sql.NullString
		var created, updated sql.NullString

		err := rows.Scan(&item.ID, &itemType, &payload, &status, &item.RetryCount, &lastErr, &created, &updated)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}

		item.Type = models.QueueItemType(itemType)
		item.Status = models.QueueStatus(status)
		item.Payload = json.RawMessage(payload)
		item.LastError = lastErr.String
		if t, err := time.Parse("2006-01-02 15:04:05", created.String); err == nil {
			item.CreatedAt = t
		}
		if t, err := time.Parse("2006-01-02 15:04:05", updated.String); err == nil {
			item.UpdatedAt = t
		}

		items = append(items, item)
	}
	return items, rows.Err()
}

// MarkComplete transitions a queue item to its terminal success state
func (db *DB) MarkComplete(id int64) error {
	_, err := db.conn.Exec(`
		UPDATE sync_queue
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(models.QueueComplete), id)
	if err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}
	return nil
}

// MarkFailed records a delivery failure, bumping the retry count
func (db *DB) MarkFailed(id int64, deliveryErr string) error {
	_, err := db.conn.Exec(`
		UPDATE sync_queue
		SET status = ?, retry_count = retry_count + 1, last_error = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(models.QueueFailed), deliveryErr, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// QueueDepth counts items still awaiting delivery
func (db *DB) QueueDepth() (int, error) {
	var depth int
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM sync_queue WHERE status IN ('pending', 'failed')
	`).Scan(&depth)
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return depth, nil
}

// PurgeTerminalBefore deletes complete and failed queue items older than
// the cutoff. Failed items inside retention stay eligible for retry.
func (db *DB) PurgeTerminalBefore(cutoff time.Time) (int64, error) {
	res, err := db.conn.Exec(`
		DELETE FROM sync_queue
		WHERE status IN ('complete', 'failed') AND updated_at < ?
	`, cutoff.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		return 0, fmt.Errorf("purge queue: %w", err)
	}
	return res.RowsAffected()
}
