package sync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smerrill/worktrace/internal/core/db"
	"github.com/smerrill/worktrace/internal/core/models"
	"github.com/smerrill/worktrace/internal/core/session"
)

// Config tunes the outbox
type Config struct {
	BatchSize     int           // max queue items drained per cycle
	SessionGap    time.Duration // aggregation gap threshold
	RetentionDays int           // synced events and terminal queue items older than this are purged
	Source        string        // recorder source id sent on session payloads
	Template      string        // mustache template for session descriptions; empty leaves them blank
}

// Status is a point-in-time snapshot of the outbox
type Status struct {
	Running       bool
	Endpoint      string
	HasCredential bool
	LastSync      time.Time
	ErrorCount    int
	SyncedCount   int
	PendingDepth  int
}

// Outbox drives outbound delivery: draining the durable queue and pushing
// freshly aggregated sessions. Every failure converts into a queued retry;
// nothing escapes the sync boundary.
type Outbox struct {
	store  *db.DB
	client *BillingClient
	cfg    Config
	log    zerolog.Logger

	mu          sync.Mutex
	running     bool
	lastSync    time.Time
	errorCount  int
	syncedCount int
}

// NewOutbox creates an outbox over the given store and API client
func NewOutbox(store *db.DB, client *BillingClient, cfg Config, log zerolog.Logger) *Outbox {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.SessionGap <= 0 {
		cfg.SessionGap = session.DefaultGap
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}
	return &Outbox{store: store, client: client, cfg: cfg, log: log}
}

// Run drives sync cycles at a fixed cadence until the context is cancelled
func (o *Outbox) Run(ctx context.Context, interval time.Duration) {
	o.setRunning(true)
	defer o.setRunning(false)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	o.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.RunOnce(ctx)
		}
	}
}

// RunOnce performs one full sync cycle: drain the queue, deliver today's
// sessions, then apply retention. Each failed delivery is recorded and
// retried on a later cycle, never within this one.
func (o *Outbox) RunOnce(ctx context.Context) {
	o.drainQueue(ctx)
	o.syncSessions(ctx)
	o.applyRetention()
}

func (o *Outbox) drainQueue(ctx context.Context) {
	items, err := o.store.PendingItems(o.cfg.BatchSize)
	if err != nil {
		o.log.Error().Err(err).Msg("sync: read queue")
		o.noteError()
		return
	}

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}

		if err := o.client.PostQueueItem(ctx, item); err != nil {
			o.log.Warn().Err(err).Int64("item", item.ID).Int("retries", item.RetryCount).Msg("sync: delivery failed")
			if dbErr := o.store.MarkFailed(item.ID, err.Error()); dbErr != nil {
				o.log.Error().Err(dbErr).Int64("item", item.ID).Msg("sync: record failure")
			}
			o.noteError()
			continue
		}

		if err := o.store.MarkComplete(item.ID); err != nil {
			o.log.Error().Err(err).Int64("item", item.ID).Msg("sync: mark complete")
			continue
		}
		o.noteSynced()
	}
}

// syncSessions recomputes today's sessions from the event log and attempts
// direct delivery; failures fall back to the durable queue.
func (o *Outbox) syncSessions(ctx context.Context) {
	today := time.Now()
	events, err := o.store.EventsForDate(today)
	if err != nil {
		o.log.Error().Err(err).Msg("sync: load events")
		o.noteError()
		return
	}

	sessions := session.Aggregate(events, o.cfg.SessionGap)
	sessions = session.Describe(sessions, events, o.cfg.Template)

	for _, s := range sessions {
		if ctx.Err() != nil {
			return
		}

		ids := unsyncedEventIDs(events, s)
		if len(ids) == 0 {
			continue // already delivered
		}

		payload := s.Payload(o.cfg.Source)
		if err := o.client.PostSession(ctx, payload); err != nil {
			o.log.Warn().Err(err).Str("client", s.ClientCode).Msg("sync: session delivery failed, queueing")
			o.noteError()

			body, marshalErr := json.Marshal(payload)
			if marshalErr != nil {
				o.log.Error().Err(marshalErr).Msg("sync: marshal session")
				continue
			}
			if _, qErr := o.store.Enqueue(models.QueueItemSession, body); qErr != nil {
				o.log.Error().Err(qErr).Msg("sync: enqueue session")
			}
			continue
		}

		if err := o.store.MarkSynced(ids); err != nil {
			o.log.Error().Err(err).Msg("sync: mark events synced")
			continue
		}
		o.noteSynced()
		o.log.Info().Str("client", s.ClientCode).Int("captures", s.CaptureCount).Msg("sync: session delivered")
	}
}

func (o *Outbox) applyRetention() {
	cutoff := time.Now().AddDate(0, 0, -o.cfg.RetentionDays)

	if n, err := o.store.PurgeSyncedBefore(cutoff); err != nil {
		o.log.Error().Err(err).Msg("sync: purge events")
	} else if n > 0 {
		o.log.Debug().Int64("purged", n).Msg("sync: old events purged")
	}

	if n, err := o.store.PurgeTerminalBefore(cutoff); err != nil {
		o.log.Error().Err(err).Msg("sync: purge queue")
	} else if n > 0 {
		o.log.Debug().Int64("purged", n).Msg("sync: old queue items purged")
	}
}

// unsyncedEventIDs returns the ids of the session's constituent events that
// still need marking
func unsyncedEventIDs(events []models.CaptureEvent, s models.WorkSession) []int64 {
	var ids []int64
	for i := range events {
		e := &events[i]
		code := e.ClientCode
		if code == "" {
			code = models.GeneralClientCode
		}
		if code != s.ClientCode || e.Synced {
			continue
		}
		if e.Timestamp.Before(s.StartTime) || e.Timestamp.After(s.EndTime) {
			continue
		}
		ids = append(ids, e.ID)
	}
	return ids
}

// Status returns a snapshot of outbox state for status commands and the TUI
func (o *Outbox) Status() Status {
	o.mu.Lock()
	st := Status{
		Running:       o.running,
		Endpoint:      o.client.Endpoint(),
		HasCredential: o.client.HasCredential(),
		LastSync:      o.lastSync,
		ErrorCount:    o.errorCount,
		SyncedCount:   o.syncedCount,
	}
	o.mu.Unlock()

	if depth, err := o.store.QueueDepth(); err == nil {
		st.PendingDepth = depth
	}
	return st
}

func (o *Outbox) setRunning(v bool) {
	o.mu.Lock()
	o.running = v
	o.mu.Unlock()
}

func (o *Outbox) noteError() {
	o.mu.Lock()
	o.errorCount++
	o.mu.Unlock()
}

func (o *Outbox) noteSynced() {
	o.mu.Lock()
	o.syncedCount++
	o.lastSync = time.Now()
	o.mu.Unlock()
}
