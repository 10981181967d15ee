package models

import "time"

// GeneralClientCode buckets sessions whose events carry no attribution.
// Kept distinct from any real client so ambiguous time is never billed.
const GeneralClientCode = "GENERAL"

// WorkSession is a contiguous span of attributed activity for one client,
// derived from the event log. Sessions are recomputed on demand and never
// persisted as a source of truth.
type WorkSession struct {
	ClientCode   string
	Date         string // YYYY-MM-DD
	StartTime    time.Time
	EndTime      time.Time
	DurationMins int
	CaptureCount int
	Description  string
	Synced       bool
	RemoteID     string // identifier assigned by the billing API, if synced
}

// SessionPayload is the wire form posted to the billing API
type SessionPayload struct {
	ClientCode   string `json:"clientCode"`
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	DurationMins int    `json:"durationMinutes"`
	CaptureCount int    `json:"captureCount"`
	Description  string `json:"description,omitempty"`
	Source       string `json:"source"`
}

// Payload converts a session to its wire form with the given source id
func (s *WorkSession) Payload(source string) SessionPayload {
	return SessionPayload{
		ClientCode:   s.ClientCode,
		Date:         s.Date,
		StartTime:    s.StartTime.Format(time.RFC3339),
		EndTime:      s.EndTime.Format(time.RFC3339),
		DurationMins: s.DurationMins,
		CaptureCount: s.CaptureCount,
		Description:  s.Description,
		Source:       source,
	}
}
