package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/smerrill/worktrace/internal/core/fingerprint"
	"github.com/smerrill/worktrace/internal/core/models"
)

// probeReport is the JSON contract for window probe commands. Fingerprint
// is hex-encoded; every field is optional.
type probeReport struct {
	WindowTitle string `json:"windowTitle"`
	ProcessName string `json:"processName"`
	URL         string `json:"url"`
	Hostname    string `json:"hostname"`
	SourceIP    string `json:"sourceIp"`
	Fingerprint string `json:"fingerprint"`
}

// ProbeSource shells out to a user-configured command for the active
// window, keeping platform specifics out of the recorder itself.
type ProbeSource struct {
	command []string
}

// NewProbeSource wraps a window probe command
func NewProbeSource(command []string) (*ProbeSource, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("probe: empty command")
	}
	return &ProbeSource{command: command}, nil
}

// Snapshot runs the probe and parses its JSON output
func (p *ProbeSource) Snapshot(ctx context.Context) (models.CaptureSignal, error) {
	cmd := exec.CommandContext(ctx, p.command[0], p.command[1:]...)
	out, err := cmd.Output()
	if err != nil {
		return models.CaptureSignal{}, fmt.Errorf("probe: %w", err)
	}

	var report probeReport
	if err := json.Unmarshal(bytes.TrimSpace(out), &report); err != nil {
		return models.CaptureSignal{}, fmt.Errorf("probe: parse output: %w", err)
	}

	sig := models.CaptureSignal{
		WindowTitle: report.WindowTitle,
		ProcessName: report.ProcessName,
		URL:         report.URL,
		Hostname:    report.Hostname,
		SourceIP:    report.SourceIP,
	}
	if fp := fingerprint.Decode(report.Fingerprint); fp != nil {
		sig.Fingerprint = fp
	}
	return sig, nil
}

// ScreenshotProbe persists screenshots by invoking a user command with a
// destination path appended to its arguments.
type ScreenshotProbe struct {
	command []string
	dir     string
}

// NewScreenshotProbe wraps a screenshot command writing into dir
func NewScreenshotProbe(command []string, dir string) (*ScreenshotProbe, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("screenshot probe: empty command")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("screenshot probe: %w", err)
	}
	return &ScreenshotProbe{command: command, dir: dir}, nil
}

// Save captures a screenshot under ref
func (s *ScreenshotProbe) Save(ctx context.Context, ref string) error {
	dest := filepath.Join(s.dir, ref+".png")
	args := append(append([]string{}, s.command[1:]...), dest)
	cmd := exec.CommandContext(ctx, s.command[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("screenshot probe: %w: %s", err, bytes.TrimSpace(out))
	}
	return nil
}
