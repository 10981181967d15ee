package models

import (
	"encoding/json"
	"time"
)

// QueueItemType tags a sync queue item with its delivery endpoint
type QueueItemType string

const (
	QueueItemSession QueueItemType = "session"
	QueueItemEntry   QueueItemType = "entry"
)

// QueueStatus is the lifecycle state of a sync queue item
type QueueStatus string

const (
	QueuePending  QueueStatus = "pending"
	QueueComplete QueueStatus = "complete"
	QueueFailed   QueueStatus = "failed"
)

// SyncQueueItem is a payload awaiting delivery to the billing API.
// Items are created on failed or deferred delivery and transition to a
// terminal status; terminal items past retention are purged.
type SyncQueueItem struct {
	ID         int64
	Type       QueueItemType
	Payload    json.RawMessage
	Status     QueueStatus
	RetryCount int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
