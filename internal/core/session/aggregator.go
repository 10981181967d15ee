// Package session derives billable work sessions from the raw capture
// event log. Sessions are a pure aggregation view: recomputable at any
// time, never authoritative.
package session

import (
	"time"

	"github.com/smerrill/worktrace/internal/core/models"
)

// DefaultGap is how long activity may pause before a new session starts
const DefaultGap = 15 * time.Minute

// Aggregate walks one day of time-ordered events and groups them into
// sessions. A new session opens when none is open, the client changes, or
// the gap since the session's last event exceeds maxGap. Events without a
// client code bucket under GENERAL. A single-event session has duration 0.
func Aggregate(events []models.CaptureEvent, maxGap time.Duration) []models.WorkSession {
	var sessions []models.WorkSession
	var current *models.WorkSession
	var lastEventTime time.Time

	for i := range events {
		e := &events[i]
		code := e.ClientCode
		if code == "" {
			code = models.GeneralClientCode
		}

		startNew := current == nil ||
			current.ClientCode != code ||
			e.Timestamp.Sub(lastEventTime) > maxGap

		if startNew {
			if current != nil {
				sessions = append(sessions, *current)
			}
			current = &models.WorkSession{
				ClientCode:   code,
				Date:         e.Timestamp.Format("2006-01-02"),
				StartTime:    e.Timestamp,
				EndTime:      e.Timestamp,
				CaptureCount: 1,
			}
		} else {
			current.EndTime = e.Timestamp
			current.CaptureCount++
		}

		current.DurationMins = int(current.EndTime.Sub(current.StartTime).Minutes())
		lastEventTime = e.Timestamp
	}

	if current != nil {
		sessions = append(sessions, *current)
	}
	return sessions
}
