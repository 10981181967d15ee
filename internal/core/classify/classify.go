// Package classify attaches AI work descriptions to recorded events. The
// vision service is an opaque collaborator; the recorder only forwards a
// screenshot reference with context and stores whatever comes back.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const analyzeTimeout = 30 * time.Second

// Request is the context sent alongside a screenshot reference
type Request struct {
	ImageRef    string `json:"imageRef"`
	WindowTitle string `json:"windowTitle,omitempty"`
	ProcessName string `json:"processName,omitempty"`
	ClientCode  string `json:"clientCode,omitempty"` // rule-based attribution, if any
}

// Result is the vision service's analysis of one captured moment
type Result struct {
	Success      bool    `json:"success"`
	ClientCode   string  `json:"clientCode,omitempty"`
	Confidence   float64 `json:"confidence"`
	Description  string  `json:"description"`
	StepSummary  string  `json:"stepSummary,omitempty"`
	ActivityType string  `json:"activityType,omitempty"`
	Model        string  `json:"model"`
	Error        string  `json:"error,omitempty"`
}

// Analyzer is the external classification capability
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}

// HTTPAnalyzer calls the vision service over HTTP
type HTTPAnalyzer struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewHTTPAnalyzer creates an analyzer against the given service URL
func NewHTTPAnalyzer(baseURL, apiKey string) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: analyzeTimeout},
	}
}

// Analyze submits one capture for analysis
func (a *HTTPAnalyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal analyze request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build analyze request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("analyze: server returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("analyze: bad payload: %w", err)
	}
	return &result, nil
}
