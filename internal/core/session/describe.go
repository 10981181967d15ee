package session

import (
	"github.com/cbroglie/mustache"

	"github.com/smerrill/worktrace/internal/core/models"
)

// Describe fills each session's Description by rendering template with
// {{client}} and {{summary}}, where summary is the latest non-empty
// classification description among the session's events. Sessions with no
// classified events keep an empty description. The input slice is
// modified in place and returned.
func Describe(sessions []models.WorkSession, events []models.CaptureEvent, template string) []models.WorkSession {
	if template == "" {
		return sessions
	}

	for i := range sessions {
		s := &sessions[i]
		summary := ""
		for j := range events {
			e := &events[j]
			code := e.ClientCode
			if code == "" {
				code = models.GeneralClientCode
			}
			if code != s.ClientCode {
				continue
			}
			if e.Timestamp.Before(s.StartTime) || e.Timestamp.After(s.EndTime) {
				continue
			}
			if e.AIDescription != "" {
				summary = e.AIDescription
			}
		}
		if summary == "" {
			continue
		}

		rendered, err := mustache.Render(template, map[string]string{
			"client":  s.ClientCode,
			"summary": summary,
		})
		if err != nil {
			// A bad template never blocks reporting or delivery
			continue
		}
		s.Description = rendered
	}
	return sessions
}
