package db

import (
	"fmt"
	"time"
)

// UnknownClientCode buckets today's counts for events with no attribution
const UnknownClientCode = "UNKNOWN"

// Stats summarizes the event log
type Stats struct {
	TotalEvents    int
	UnsyncedEvents int
	TodayEvents    int
	TodayByClient  map[string]int
}

// GetStats returns aggregate counts over the event log. Events without a
// client code land in the UNKNOWN bucket rather than an empty key.
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{TodayByClient: make(map[string]int)}

	err := db.conn.QueryRow(`SELECT COUNT(*) FROM capture_events`).Scan(&stats.TotalEvents)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	err = db.conn.QueryRow(`SELECT COUNT(*) FROM capture_events WHERE synced = 0`).Scan(&stats.UnsyncedEvents)
	if err != nil {
		return nil, fmt.Errorf("count unsynced: %w", err)
	}

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).UTC().Format(time.RFC3339)

	err = db.conn.QueryRow(`
		SELECT COUNT(*) FROM capture_events WHERE timestamp >= ?
	`, dayStart).Scan(&stats.TodayEvents)
	if err != nil {
		return nil, fmt.Errorf("count today: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT COALESCE(NULLIF(client_code, ''), ?), COUNT(*)
		FROM capture_events
		WHERE timestamp >= ?
		GROUP BY 1
	`, UnknownClientCode, dayStart)
	if err != nil {
		return nil, fmt.Errorf("count today by client: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var code string
		var count int
		if err := rows.Scan(&code, &count); err != nil {
			return nil, fmt.Errorf("scan client count: %w", err)
		}
		stats.TodayByClient[code] = count
	}
	return stats, rows.Err()
}
