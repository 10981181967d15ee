package db

import (
	"testing"
	"time"

	"github.com/smerrill/worktrace/internal/core/models"
)

func sampleEvent(ts time.Time, client string) *models.CaptureEvent {
	return &models.CaptureEvent{
		Timestamp:      ts,
		WindowTitle:    "Acme Dashboard",
		ProcessName:    "firefox",
		URL:            "https://app.acme.com/board",
		Hostname:       "ws-01.acme.local",
		ClientCode:     client,
		Confidence:     0.9,
		CaptureType:    models.CaptureFull,
		CaptureReason:  models.ReasonWindowChanged,
		Fingerprint:    []byte{0xAB, 0xCD},
		KeyboardActive: true,
	}
}

func TestInsertEvent_AssignsMonotonicIDs(t *testing.T) {
	database := testDB(t)
	now := time.Now().UTC()

	id1, err := database.InsertEvent(sampleEvent(now, "ACME"))
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}
	id2, err := database.InsertEvent(sampleEvent(now.Add(time.Minute), "ACME"))
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}

	if id2 <= id1 {
		t.Errorf("Expected monotonic ids, got %d then %d", id1, id2)
	}
}

func TestInsertEvent_RecordsCreationTime(t *testing.T) {
	database := testDB(t)
	now := time.Now().UTC()

	if _, err := database.InsertEvent(sampleEvent(now, "ACME")); err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}

	events, err := database.EventsForDate(now)
	if err != nil {
		t.Fatalf("EventsForDate: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be populated from the row default")
	}
	if drift := events[0].CreatedAt.Sub(now); drift < -time.Minute || drift > time.Minute {
		t.Errorf("CreatedAt %v too far from insert time %v", events[0].CreatedAt, now)
	}
}

func TestLatestFingerprint(t *testing.T) {
	database := testDB(t)

	// No history yet
	fp, err := database.LatestFingerprint()
	if err != nil {
		t.Fatalf("LatestFingerprint: %v", err)
	}
	if fp != nil {
		t.Errorf("Expected nil fingerprint on empty log, got %v", fp)
	}

	now := time.Now().UTC()
	e1 := sampleEvent(now, "ACME")
	e1.Fingerprint = []byte{0x01}
	e2 := sampleEvent(now.Add(time.Minute), "ACME")
	e2.Fingerprint = []byte{0x02}
	e3 := sampleEvent(now.Add(2*time.Minute), "ACME")
	e3.Fingerprint = nil // metadata-only capture

	for _, e := range []*models.CaptureEvent{e1, e2, e3} {
		if _, err := database.InsertEvent(e); err != nil {
			t.Fatalf("InsertEvent: %v", err)
		}
	}

	fp, err = database.LatestFingerprint()
	if err != nil {
		t.Fatalf("LatestFingerprint: %v", err)
	}
	if len(fp) != 1 || fp[0] != 0x02 {
		t.Errorf("Expected most recent non-empty fingerprint 0x02, got %v", fp)
	}
}

func TestEventsForDate_OrderedAscending(t *testing.T) {
	database := testDB(t)
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	// Insert out of order plus one event on the next day
	times := []time.Time{
		day.Add(14 * time.Hour),
		day.Add(9 * time.Hour),
		day.Add(11 * time.Hour),
		day.Add(25 * time.Hour),
	}
	for _, ts := range times {
		if _, err := database.InsertEvent(sampleEvent(ts, "ACME")); err != nil {
			t.Fatalf("InsertEvent: %v", err)
		}
	}

	events, err := database.EventsForDate(day)
	if err != nil {
		t.Fatalf("EventsForDate: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("Expected 3 events on the day, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Timestamp.Before(events[i-1].Timestamp) {
			t.Errorf("Events out of order at index %d", i)
		}
	}
}

func TestUnsyncedAndMarkSynced(t *testing.T) {
	database := testDB(t)
	now := time.Now().UTC()

	var ids []int64
	for i := 0; i < 5; i++ {
		id, err := database.InsertEvent(sampleEvent(now.Add(time.Duration(i)*time.Minute), "ACME"))
		if err != nil {
			t.Fatalf("InsertEvent: %v", err)
		}
		ids = append(ids, id)
	}

	events, err := database.UnsyncedEvents(3)
	if err != nil {
		t.Fatalf("UnsyncedEvents: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected limit of 3, got %d", len(events))
	}

	if err := database.MarkSynced(ids[:4]); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	events, err = database.UnsyncedEvents(10)
	if err != nil {
		t.Fatalf("UnsyncedEvents: %v", err)
	}
	if len(events) != 1 || events[0].ID != ids[4] {
		t.Errorf("Expected only the last event unsynced, got %+v", events)
	}
}

func TestAttachClassification(t *testing.T) {
	database := testDB(t)

	id, err := database.InsertEvent(sampleEvent(time.Now().UTC(), ""))
	if err != nil {
		t.Fatalf("InsertEvent: %v", err)
	}

	err = database.AttachClassification(id, "ACME", 0.82, "Reviewing sprint board", "vision-v2")
	if err != nil {
		t.Fatalf("AttachClassification: %v", err)
	}

	events, err := database.UnsyncedEvents(1)
	if err != nil {
		t.Fatalf("UnsyncedEvents: %v", err)
	}
	e := events[0]
	if e.AIClientCode != "ACME" || e.AIConfidence != 0.82 || e.AIDescription != "Reviewing sprint board" || e.AIModel != "vision-v2" {
		t.Errorf("Classification not attached: %+v", e)
	}

	// Unknown id is an error
	if err := database.AttachClassification(99999, "X", 0.5, "", ""); err == nil {
		t.Error("Expected error attaching to missing event")
	}
}

func TestPurgeSyncedBefore(t *testing.T) {
	database := testDB(t)
	now := time.Now().UTC()

	oldID, _ := database.InsertEvent(sampleEvent(now.Add(-40*24*time.Hour), "ACME"))
	staleUnsynced, _ := database.InsertEvent(sampleEvent(now.Add(-40*24*time.Hour), "INIT"))
	freshID, _ := database.InsertEvent(sampleEvent(now, "ACME"))

	if err := database.MarkSynced([]int64{oldID, freshID}); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}

	purged, err := database.PurgeSyncedBefore(now.Add(-30 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("PurgeSyncedBefore: %v", err)
	}
	if purged != 1 {
		t.Errorf("Expected 1 purged event, got %d", purged)
	}

	// The old unsynced event must survive
	var count int
	if err := database.QueryRow("SELECT COUNT(*) FROM capture_events WHERE id = ?", staleUnsynced).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Error("Unsynced event was purged")
	}
}
