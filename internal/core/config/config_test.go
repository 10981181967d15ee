package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smerrill/worktrace/internal/core/attribution"
)

func TestLoad_FirstRunWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.SourceID)
	assert.Equal(t, 10*time.Second, cfg.Capture.MinInterval.Duration)
	assert.Equal(t, 5*time.Minute, cfg.Capture.MaxInterval.Duration)

	// File was created
	_, err = os.Stat(path)
	assert.NoError(t, err)

	// Reload keeps the generated source id stable
	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.SourceID, again.SourceID)
}

func TestLoad_ParsesFullConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
source_id = "recorder-1"

[capture]
min_interval = "5s"
max_interval = "2m"
hash_threshold = 20

[sync]
api_url = "https://billing.example"
api_key = "secret"
interval = "1m"
batch_size = 50
retention_days = 14

[attribution]
remote_enabled = true
remote_url = "https://assets.example"

[log]
level = "debug"

[[clients]]
name = "Acme Corp"
code = "ACME"

[[clients.rules]]
type = "ip_range"
pattern = "10.0.0.0/24"

[[clients.rules]]
type = "window_title"
pattern = "*Acme*"

[[clients]]
name = "Initech"
code = "INIT"

[[clients.rules]]
type = "hostname"
pattern = "*.initech.com"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "recorder-1", cfg.SourceID)
	assert.Equal(t, 5*time.Second, cfg.Capture.MinInterval.Duration)
	assert.Equal(t, 20, cfg.Capture.HashThreshold)
	assert.Equal(t, "https://billing.example", cfg.Sync.APIURL)
	assert.Equal(t, 14, cfg.Sync.RetentionDays)
	assert.True(t, cfg.Attribution.RemoteEnabled)
	assert.Equal(t, "debug", cfg.Log.Level)

	require.Len(t, cfg.Clients, 2)
	assert.Equal(t, "ACME", cfg.Clients[0].Code)
	require.Len(t, cfg.Clients[0].Rules, 2)
}

func TestAttributionClients_PreservesOrder(t *testing.T) {
	cfg := &Config{
		Clients: []ClientConfig{
			{Name: "First", Code: "FST", Rules: []RuleConfig{{Type: "hostname", Pattern: "a-*"}}},
			{Name: "Second", Code: "SND", Rules: []RuleConfig{{Type: "url", Pattern: "https://*"}}},
		},
	}

	clients := cfg.AttributionClients()

	require.Len(t, clients, 2)
	assert.Equal(t, "FST", clients[0].Code)
	assert.Equal(t, attribution.RuleHostname, clients[0].Rules[0].Type)
	assert.Equal(t, attribution.RuleURL, clients[1].Rules[0].Type)
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Sync.APIURL = "https://billing.example"
	cfg.Clients = []ClientConfig{{Name: "Acme", Code: "ACME"}}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.SourceID, loaded.SourceID)
	assert.Equal(t, "https://billing.example", loaded.Sync.APIURL)
	require.Len(t, loaded.Clients, 1)
}
