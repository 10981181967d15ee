package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/smerrill/worktrace/internal/core/attribution"
	"github.com/smerrill/worktrace/internal/core/config"
	"github.com/smerrill/worktrace/internal/core/db"
	"github.com/smerrill/worktrace/internal/core/models"
	"github.com/smerrill/worktrace/internal/core/session"
)

// ListSessionsArgs defines arguments for the list_sessions tool
type ListSessionsArgs struct {
	Date string `json:"date,omitempty" jsonschema:"description=Calendar date in YYYY-MM-DD form (default: today)"`
}

// TestAttributionArgs defines arguments for the test_attribution tool
type TestAttributionArgs struct {
	WindowTitle string `json:"window_title,omitempty" jsonschema:"description=Window title to evaluate"`
	ProcessName string `json:"process_name,omitempty" jsonschema:"description=Process name to evaluate"`
	URL         string `json:"url,omitempty" jsonschema:"description=URL to evaluate"`
	Hostname    string `json:"hostname,omitempty" jsonschema:"description=Hostname to evaluate"`
	SourceIP    string `json:"source_ip,omitempty" jsonschema:"description=Source IP address to evaluate"`
}

// SessionSummary is a session in the list_sessions response
type SessionSummary struct {
	ClientCode   string `json:"client_code"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	DurationMins int    `json:"duration_minutes"`
	CaptureCount int    `json:"capture_count"`
	Description  string `json:"description,omitempty"`
}

// AttributionResult is one candidate in the test_attribution response
type AttributionResult struct {
	ClientName   string  `json:"client_name"`
	ClientCode   string  `json:"client_code"`
	Confidence   float64 `json:"confidence"`
	RuleType     string  `json:"rule_type"`
	Pattern      string  `json:"pattern"`
	MatchedValue string  `json:"matched_value"`
}

// StartServer starts the MCP server over stdio
func StartServer(dbPath, configPath string) error {
	database, err := db.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := database.Close(); closeErr != nil {
			log.Printf("Error closing database: %v", closeErr)
		}
	}()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	s := server.NewMCPServer(
		"worktrace",
		"1.0.0",
	)

	statsTool := mcp.NewTool("get_stats",
		mcp.WithDescription("Get recording statistics: total events, unsynced backlog, and today's per-client breakdown."),
	)
	s.AddTool(statsTool, makeGetStatsHandler(database))

	listTool := mcp.NewTool("list_sessions",
		mcp.WithDescription("List aggregated work sessions for a calendar date, newest day defaulting to today."),
		mcp.WithString("date",
			mcp.Description("Calendar date in YYYY-MM-DD form (default: today)")),
	)
	s.AddTool(listTool, makeListSessionsHandler(database, cfg))

	attributionTool := mcp.NewTool("test_attribution",
		mcp.WithDescription("Evaluate the configured client detection rules against supplied signals without recording anything."),
		mcp.WithString("window_title",
			mcp.Description("Window title to evaluate")),
		mcp.WithString("process_name",
			mcp.Description("Process name to evaluate")),
		mcp.WithString("url",
			mcp.Description("URL to evaluate")),
		mcp.WithString("hostname",
			mcp.Description("Hostname to evaluate")),
		mcp.WithString("source_ip",
			mcp.Description("Source IP address to evaluate")),
	)
	s.AddTool(attributionTool, makeTestAttributionHandler(cfg))

	return server.ServeStdio(s)
}

func makeGetStatsHandler(database *db.DB) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := database.GetStats()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
		}

		resultJSON, err := json.Marshal(map[string]interface{}{
			"total_events":    stats.TotalEvents,
			"unsynced_events": stats.UnsyncedEvents,
			"today_events":    stats.TodayEvents,
			"today_by_client": stats.TodayByClient,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

func makeListSessionsHandler(database *db.DB, cfg *config.Config) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ListSessionsArgs
		argsBytes, _ := json.Marshal(request.Params.Arguments)
		if err := json.Unmarshal(argsBytes, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		day := time.Now()
		if args.Date != "" {
			parsed, err := time.ParseInLocation("2006-01-02", args.Date, time.Local)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid date %q: use YYYY-MM-DD", args.Date)), nil
			}
			day = parsed
		}

		events, err := database.EventsForDate(day)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load events: %v", err)), nil
		}

		sessions := session.Aggregate(events, session.DefaultGap)
		sessions = session.Describe(sessions, events, cfg.Classify.DescriptionTemplate)

		var results []SessionSummary
		for _, s := range sessions {
			results = append(results, SessionSummary{
				ClientCode:   s.ClientCode,
				Date:         s.Date,
				StartTime:    s.StartTime.Format(time.RFC3339),
				EndTime:      s.EndTime.Format(time.RFC3339),
				DurationMins: s.DurationMins,
				CaptureCount: s.CaptureCount,
				Description:  s.Description,
			})
		}

		resultJSON, err := json.Marshal(map[string]interface{}{
			"sessions": results,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}

func makeTestAttributionHandler(cfg *config.Config) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args TestAttributionArgs
		argsBytes, _ := json.Marshal(request.Params.Arguments)
		if err := json.Unmarshal(argsBytes, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		engine := attribution.NewEngine(cfg.AttributionClients())
		matches := engine.DetectAll(models.CaptureSignal{
			WindowTitle: args.WindowTitle,
			ProcessName: args.ProcessName,
			URL:         args.URL,
			Hostname:    args.Hostname,
			SourceIP:    args.SourceIP,
		})

		var results []AttributionResult
		for _, m := range matches {
			results = append(results, AttributionResult{
				ClientName:   m.ClientName,
				ClientCode:   m.ClientCode,
				Confidence:   m.Confidence,
				RuleType:     m.RuleType,
				Pattern:      m.Pattern,
				MatchedValue: m.MatchedValue,
			})
		}

		resultJSON, err := json.Marshal(map[string]interface{}{
			"matches": results,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcp.NewToolResultText(string(resultJSON)), nil
	}
}
