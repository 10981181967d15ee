package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSessionPayload(t *testing.T) {
	start := time.Date(2026, 8, 14, 9, 0, 0, 0, time.UTC)
	s := WorkSession{
		ClientCode:   "ACME",
		Date:         "2026-08-14",
		StartTime:    start,
		EndTime:      start.Add(45 * time.Minute),
		DurationMins: 45,
		CaptureCount: 12,
		Description:  "invoice review",
	}

	p := s.Payload("recorder-1")
	assert.Equal(t, "ACME", p.ClientCode)
	assert.Equal(t, "2026-08-14", p.Date)
	assert.Equal(t, "2026-08-14T09:00:00Z", p.StartTime)
	assert.Equal(t, "2026-08-14T09:45:00Z", p.EndTime)
	assert.Equal(t, 45, p.DurationMins)
	assert.Equal(t, 12, p.CaptureCount)
	assert.Equal(t, "invoice review", p.Description)
	assert.Equal(t, "recorder-1", p.Source)
}
