package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smerrill/worktrace/internal/core/models"
)

func testEngine() *Engine {
	return NewEngine([]Client{
		{
			Name: "Acme Corp",
			Code: "ACME",
			Rules: []Rule{
				{Type: RuleIPRange, Pattern: "10.0.0.0/24"},
				{Type: RuleWindowTitle, Pattern: "*Acme*"},
			},
		},
		{
			Name: "Initech",
			Code: "INIT",
			Rules: []Rule{
				{Type: RuleHostname, Pattern: "*.initech.com"},
				{Type: RuleURL, Pattern: "https://portal.initech.com/*"},
			},
		},
	})
}

func TestDetect_IPRangeMatch(t *testing.T) {
	e := testEngine()

	m := e.Detect(models.CaptureSignal{SourceIP: "10.0.0.5"})

	require.NotNil(t, m)
	assert.Equal(t, "ACME", m.ClientCode)
	assert.Equal(t, 0.95, m.Confidence)
	assert.Equal(t, "ip_range", m.RuleType)
	assert.Equal(t, "10.0.0.5", m.MatchedValue)
}

func TestDetect_IPOutsideRange(t *testing.T) {
	e := testEngine()

	assert.Nil(t, e.Detect(models.CaptureSignal{SourceIP: "10.0.1.5"}))
}

func TestDetect_HigherConfidenceWins(t *testing.T) {
	e := testEngine()

	// Acme's window_title (0.75) vs Initech's hostname (0.90)
	m := e.Detect(models.CaptureSignal{
		WindowTitle: "Acme Dashboard",
		Hostname:    "dev.initech.com",
	})

	require.NotNil(t, m)
	assert.Equal(t, "INIT", m.ClientCode)
	assert.Equal(t, 0.90, m.Confidence)
}

func TestDetect_AbsentSignalNeverParticipates(t *testing.T) {
	e := testEngine()

	// No source IP: the ip_range rule must not fire on empty string
	m := e.Detect(models.CaptureSignal{WindowTitle: "Acme Planning"})

	require.NotNil(t, m)
	assert.Equal(t, "window_title", m.RuleType)
}

func TestDetect_EqualConfidenceFirstClientWins(t *testing.T) {
	e := NewEngine([]Client{
		{Name: "First", Code: "FST", Rules: []Rule{{Type: RuleHostname, Pattern: "shared-*"}}},
		{Name: "Second", Code: "SND", Rules: []Rule{{Type: RuleHostname, Pattern: "shared-*"}}},
	})

	m := e.Detect(models.CaptureSignal{Hostname: "shared-host"})

	require.NotNil(t, m)
	assert.Equal(t, "FST", m.ClientCode)
}

func TestDetect_WithinClientLaterEqualRuleWins(t *testing.T) {
	e := NewEngine([]Client{
		{Name: "Acme", Code: "ACME", Rules: []Rule{
			{Type: RuleHostname, Pattern: "a-*"},
			{Type: RuleHostname, Pattern: "*-host"},
		}},
	})

	m := e.Detect(models.CaptureSignal{Hostname: "a-host"})

	require.NotNil(t, m)
	assert.Equal(t, "*-host", m.Pattern) // later equal-confidence rule wins
	assert.Equal(t, "hostname", m.RuleType)
}

func TestDetectAll_OrderedByConfidence(t *testing.T) {
	e := testEngine()

	matches := e.DetectAll(models.CaptureSignal{
		WindowTitle: "Acme Dashboard",
		Hostname:    "dev.initech.com",
	})

	require.Len(t, matches, 2)
	assert.Equal(t, "INIT", matches[0].ClientCode)
	assert.Equal(t, 0.90, matches[0].Confidence)
	assert.Equal(t, "ACME", matches[1].ClientCode)
	assert.Equal(t, 0.75, matches[1].Confidence)
}

func TestDetectAll_NoMatches(t *testing.T) {
	e := testEngine()

	assert.Empty(t, e.DetectAll(models.CaptureSignal{WindowTitle: "Spotify"}))
}
