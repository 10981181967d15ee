package db

import (
	"testing"
	"time"
)

func TestGetStats(t *testing.T) {
	database := testDB(t)
	now := time.Now()

	// Two events today (one unattributed), one last week
	id1, _ := database.InsertEvent(sampleEvent(now.UTC(), "ACME"))
	_, _ = database.InsertEvent(sampleEvent(now.UTC(), ""))
	_, _ = database.InsertEvent(sampleEvent(now.Add(-7*24*time.Hour).UTC(), "INIT"))
	_ = database.MarkSynced([]int64{id1})

	stats, err := database.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}

	if stats.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", stats.TotalEvents)
	}
	if stats.UnsyncedEvents != 2 {
		t.Errorf("UnsyncedEvents = %d, want 2", stats.UnsyncedEvents)
	}
	if stats.TodayEvents != 2 {
		t.Errorf("TodayEvents = %d, want 2", stats.TodayEvents)
	}
	if stats.TodayByClient["ACME"] != 1 {
		t.Errorf("TodayByClient[ACME] = %d, want 1", stats.TodayByClient["ACME"])
	}
	if stats.TodayByClient[UnknownClientCode] != 1 {
		t.Errorf("TodayByClient[UNKNOWN] = %d, want 1", stats.TodayByClient[UnknownClientCode])
	}
}

func TestGetStats_EmptyLog(t *testing.T) {
	database := testDB(t)

	stats, err := database.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalEvents != 0 || stats.TodayEvents != 0 || len(stats.TodayByClient) != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
}
