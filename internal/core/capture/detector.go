// Package capture decides when a moment of work activity is worth
// recording and how fast the recorder should be sampling.
package capture

import (
	"time"

	"github.com/smerrill/worktrace/internal/core/fingerprint"
	"github.com/smerrill/worktrace/internal/core/models"
)

// DetectorConfig bounds the change detector's capture rate
type DetectorConfig struct {
	MinInterval   time.Duration // hard floor between captures
	MaxInterval   time.Duration // backstop: always capture after this long
	HashThreshold int           // Hamming distance above which content changed
}

// ChangeDetector gates capture decisions on window identity, content
// fingerprints, and elapsed time. Evaluate never mutates state; callers
// advance it with RecordCapture after actually recording.
type ChangeDetector struct {
	cfg DetectorConfig

	lastCaptureTime time.Time
	lastWindowTitle string
	lastProcess     string
	lastFingerprint []byte
}

// NewChangeDetector creates a detector with no capture history
func NewChangeDetector(cfg DetectorConfig) *ChangeDetector {
	return &ChangeDetector{cfg: cfg}
}

// Evaluate classifies the current tick. Rules apply in strict order:
// first capture, min-interval floor, max-interval backstop, window change,
// content change, no change. The first rule that fires wins.
func (d *ChangeDetector) Evaluate(title, process string, fp []byte) models.CaptureDecision {
	return d.evaluateAt(time.Now(), title, process, fp)
}

func (d *ChangeDetector) evaluateAt(now time.Time, title, process string, fp []byte) models.CaptureDecision {
	if d.lastCaptureTime.IsZero() {
		return models.CaptureDecision{ShouldCapture: true, Reason: models.ReasonFirstCapture}
	}

	elapsed := now.Sub(d.lastCaptureTime)
	if elapsed < d.cfg.MinInterval {
		return models.CaptureDecision{ShouldCapture: false, Reason: models.ReasonMinInterval}
	}

	if elapsed >= d.cfg.MaxInterval {
		return models.CaptureDecision{ShouldCapture: true, Reason: models.ReasonMaxInterval}
	}

	if title != d.lastWindowTitle || process != d.lastProcess {
		return models.CaptureDecision{ShouldCapture: true, Reason: models.ReasonWindowChanged}
	}

	if len(fp) > 0 && len(d.lastFingerprint) > 0 {
		if fingerprint.Distance(fp, d.lastFingerprint) > d.cfg.HashThreshold {
			return models.CaptureDecision{ShouldCapture: true, Reason: models.ReasonContentChanged}
		}
	}

	return models.CaptureDecision{ShouldCapture: false, Reason: models.ReasonNoChange}
}

// RecordCapture advances detector state after a capture was actually
// recorded. Safe to replay with identical arguments.
func (d *ChangeDetector) RecordCapture(title, process string, fp []byte) {
	d.recordCaptureAt(time.Now(), title, process, fp)
}

func (d *ChangeDetector) recordCaptureAt(now time.Time, title, process string, fp []byte) {
	d.lastCaptureTime = now
	d.lastWindowTitle = title
	d.lastProcess = process
	d.lastFingerprint = fp
}

// SetLastFingerprint seeds the content baseline from persisted history so a
// restart does not force a spurious content_changed capture. Does not count
// as a capture.
func (d *ChangeDetector) SetLastFingerprint(fp []byte) {
	d.lastFingerprint = fp
}
