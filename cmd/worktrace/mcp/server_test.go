package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smerrill/worktrace/internal/core/config"
	"github.com/smerrill/worktrace/internal/core/db"
	"github.com/smerrill/worktrace/internal/core/models"
)

func testStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// makeRequest creates a CallToolRequest with the given arguments
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestListSessionsIncludesDescriptions(t *testing.T) {
	store := testStore(t)
	id, err := store.InsertEvent(&models.CaptureEvent{
		Timestamp:     time.Now().UTC(),
		WindowTitle:   "Acme Dashboard",
		ProcessName:   "firefox",
		ClientCode:    "ACME",
		CaptureType:   models.CaptureFull,
		CaptureReason: models.ReasonFirstCapture,
	})
	require.NoError(t, err)
	require.NoError(t, store.AttachClassification(id, "ACME", 0.9, "invoice review", "vision-1"))

	cfg := config.Default()
	handler := makeListSessionsHandler(store, cfg)

	result, err := handler(context.Background(), makeRequest(map[string]any{}))
	require.NoError(t, err)

	var payload struct {
		Sessions []SessionSummary `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	require.Len(t, payload.Sessions, 1)
	assert.Equal(t, "ACME", payload.Sessions[0].ClientCode)
	assert.Equal(t, "ACME: invoice review", payload.Sessions[0].Description)
}

func TestListSessionsRejectsBadDate(t *testing.T) {
	store := testStore(t)
	handler := makeListSessionsHandler(store, config.Default())

	result, err := handler(context.Background(), makeRequest(map[string]any{
		"date": "next tuesday",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGetStatsReportsCounts(t *testing.T) {
	store := testStore(t)
	_, err := store.InsertEvent(&models.CaptureEvent{
		Timestamp:     time.Now().UTC(),
		WindowTitle:   "Editor",
		ProcessName:   "vim",
		CaptureType:   models.CaptureMetadataOnly,
		CaptureReason: models.ReasonFirstCapture,
	})
	require.NoError(t, err)

	handler := makeGetStatsHandler(store)
	result, err := handler(context.Background(), makeRequest(map[string]any{}))
	require.NoError(t, err)

	var payload struct {
		TotalEvents    int            `json:"total_events"`
		UnsyncedEvents int            `json:"unsynced_events"`
		TodayByClient  map[string]int `json:"today_by_client"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Equal(t, 1, payload.TotalEvents)
	assert.Equal(t, 1, payload.UnsyncedEvents)
	assert.Equal(t, 1, payload.TodayByClient[db.UnknownClientCode])
}

func TestTestAttributionEvaluatesRules(t *testing.T) {
	cfg := config.Default()
	cfg.Clients = []config.ClientConfig{
		{
			Name: "Acme",
			Code: "ACME",
			Rules: []config.RuleConfig{
				{Type: "window_title", Pattern: "*acme*"},
			},
		},
	}

	handler := makeTestAttributionHandler(cfg)
	result, err := handler(context.Background(), makeRequest(map[string]any{
		"window_title": "Acme Dashboard - Firefox",
	}))
	require.NoError(t, err)

	var payload struct {
		Matches []AttributionResult `json:"matches"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	require.Len(t, payload.Matches, 1)
	assert.Equal(t, "ACME", payload.Matches[0].ClientCode)
	assert.InDelta(t, 0.75, payload.Matches[0].Confidence, 1e-9)
}
