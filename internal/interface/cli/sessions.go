package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/cbroglie/mustache"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/smerrill/worktrace/internal/core/models"
	"github.com/smerrill/worktrace/internal/core/session"
)

var (
	sessionsDate string
	sessionsJSON bool
	sessionsCopy bool
)

// reportTemplate renders the daily report. Kept as mustache so users can
// recognize the shape if they ever want a custom one.
const reportTemplate = `Work report for {{date}}
{{#sessions}}
  {{start}}-{{end}}  {{client}}  {{duration}}m  ({{captures}} captures){{#description}}  {{description}}{{/description}}
{{/sessions}}
{{^sessions}}
  no recorded activity
{{/sessions}}
Total: {{totalMinutes}}m across {{count}} session(s)
`

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Show work sessions for a day",
	Long: `Aggregate the day's capture events into billable work sessions.

The date accepts natural language:

  worktrace sessions --date yesterday
  worktrace sessions --date "last friday"
  worktrace sessions --date 2026-08-14`,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsDate, "date", "today", "Day to report on")
	sessionsCmd.Flags().BoolVar(&sessionsJSON, "json", false, "Emit JSON instead of a report")
	sessionsCmd.Flags().BoolVar(&sessionsCopy, "copy", false, "Copy the report to the clipboard")
	rootCmd.AddCommand(sessionsCmd)
}

// parseDay resolves a natural-language or ISO date to a calendar day
func parseDay(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if d, err := time.ParseInLocation("2006-01-02", input, time.Local); err == nil {
		return d, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	result, err := w.Parse(input, time.Now())
	if err != nil || result == nil {
		return time.Time{}, fmt.Errorf("cannot parse date %q", input)
	}
	return result.Time, nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	day, err := parseDay(sessionsDate)
	if err != nil {
		return err
	}

	database, err := openDB()
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	events, err := database.EventsForDate(day)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}
	sessions := session.Aggregate(events, session.DefaultGap)
	sessions = session.Describe(sessions, events, cfg.Classify.DescriptionTemplate)

	if sessionsJSON {
		out, err := json.MarshalIndent(sessions, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	report, err := renderReport(day, sessions)
	if err != nil {
		return err
	}
	fmt.Print(report)

	if sessionsCopy {
		if err := clipboard.WriteAll(report); err != nil {
			return fmt.Errorf("failed to copy report: %w", err)
		}
		fmt.Println("(copied to clipboard)")
	}
	return nil
}

func renderReport(day time.Time, sessions []models.WorkSession) (string, error) {
	rows := make([]map[string]interface{}, 0, len(sessions))
	total := 0
	for _, s := range sessions {
		total += s.DurationMins
		rows = append(rows, map[string]interface{}{
			"start":       s.StartTime.Local().Format("15:04"),
			"end":         s.EndTime.Local().Format("15:04"),
			"client":      s.ClientCode,
			"duration":    s.DurationMins,
			"captures":    s.CaptureCount,
			"description": s.Description,
		})
	}

	report, err := mustache.Render(reportTemplate, map[string]interface{}{
		"date":         day.Format("2006-01-02"),
		"sessions":     rows,
		"count":        len(sessions),
		"totalMinutes": total,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return report, nil
}
