// Package config loads recorder settings from ~/.config/worktrace/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/smerrill/worktrace/internal/core/attribution"
)

// DefaultDescriptionTemplate renders a session description from attached
// AI summaries. Users can override it in config.toml.
const DefaultDescriptionTemplate = `{{client}}: {{summary}}`

// Config is the full recorder configuration
type Config struct {
	SourceID string `toml:"source_id"` // stable recorder identity, generated on first run

	Capture     CaptureConfig     `toml:"capture"`
	Sync        SyncConfig        `toml:"sync"`
	Attribution AttributionConfig `toml:"attribution"`
	Classify    ClassifyConfig    `toml:"classify"`
	Log         LogConfig         `toml:"log"`
	Clients     []ClientConfig    `toml:"clients"`
}

// CaptureConfig tunes the capture decision engine. ProbeCommand is a
// user-supplied command that prints the active window as JSON; without it
// the recorder has no signal source and `run` refuses to start.
type CaptureConfig struct {
	MinInterval       duration `toml:"min_interval"`
	MaxInterval       duration `toml:"max_interval"`
	HashThreshold     int      `toml:"hash_threshold"`
	ProbeCommand      []string `toml:"probe_command"`
	ScreenshotCommand []string `toml:"screenshot_command"`
	ScreenshotDir     string   `toml:"screenshot_dir"`
}

// SyncConfig tunes outbound delivery
type SyncConfig struct {
	APIURL        string   `toml:"api_url"`
	APIKey        string   `toml:"api_key"`
	Interval      duration `toml:"interval"`
	BatchSize     int      `toml:"batch_size"`
	RetentionDays int      `toml:"retention_days"`
}

// AttributionConfig tunes client detection
type AttributionConfig struct {
	RemoteEnabled bool   `toml:"remote_enabled"`
	RemoteURL     string `toml:"remote_url"`
	RemoteAPIKey  string `toml:"remote_api_key"`
}

// ClassifyConfig tunes the optional AI classification worker
type ClassifyConfig struct {
	Enabled             bool   `toml:"enabled"`
	ServiceURL          string `toml:"service_url"`
	APIKey              string `toml:"api_key"`
	QueueSize           int    `toml:"queue_size"`
	DescriptionTemplate string `toml:"description_template"`
}

// LogConfig tunes structured logging
type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// ClientConfig declares one client and its detection rules
type ClientConfig struct {
	Name  string       `toml:"name"`
	Code  string       `toml:"code"`
	Rules []RuleConfig `toml:"rules"`
}

// RuleConfig declares one detection rule
type RuleConfig struct {
	Type    string `toml:"type"`
	Pattern string `toml:"pattern"`
}

// duration wraps time.Duration for TOML string values like "30s"
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Dir returns the config directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", "worktrace")
}

// Path returns the default config file location
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// DefaultDBPath returns the default database location
func DefaultDBPath() string {
	return filepath.Join(Dir(), "worktrace.db")
}

// Default returns a config with sensible defaults and a fresh source id
func Default() *Config {
	return &Config{
		SourceID: uuid.NewString(),
		Capture: CaptureConfig{
			MinInterval:   duration{10 * time.Second},
			MaxInterval:   duration{5 * time.Minute},
			HashThreshold: 10,
		},
		Sync: SyncConfig{
			Interval:      duration{5 * time.Minute},
			BatchSize:     25,
			RetentionDays: 30,
		},
		Classify: ClassifyConfig{
			QueueSize:           16,
			DescriptionTemplate: DefaultDescriptionTemplate,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads config from path, creating it with defaults on first run. A
// missing source id is generated and written back so session payloads keep
// a stable identity.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
		return cfg, nil
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.SourceID == "" {
		cfg.SourceID = uuid.NewString()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("persist source id: %w", err)
		}
	}

	return cfg, nil
}

// Save writes the config to path
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return toml.NewEncoder(f).Encode(c)
}

// AttributionClients converts declared clients into compiled-ready engine
// input, preserving declaration order
func (c *Config) AttributionClients() []attribution.Client {
	clients := make([]attribution.Client, 0, len(c.Clients))
	for _, cc := range c.Clients {
		client := attribution.Client{Name: cc.Name, Code: cc.Code}
		for _, r := range cc.Rules {
			client.Rules = append(client.Rules, attribution.Rule{
				Type:    attribution.RuleType(r.Type),
				Pattern: r.Pattern,
			})
		}
		clients = append(clients, client)
	}
	return clients
}
