package models

import (
	"errors"
	"time"
)

// CaptureReason explains why a capture decision was made
type CaptureReason string

const (
	ReasonFirstCapture   CaptureReason = "first_capture"
	ReasonMinInterval    CaptureReason = "min_interval"
	ReasonMaxInterval    CaptureReason = "max_interval"
	ReasonWindowChanged  CaptureReason = "window_changed"
	ReasonContentChanged CaptureReason = "content_changed"
	ReasonNoChange       CaptureReason = "no_change"
)

// CaptureType describes how much of the moment was recorded
type CaptureType string

const (
	CaptureFull         CaptureType = "full"
	CaptureMetadataOnly CaptureType = "metadata_only"
	CaptureFailed       CaptureType = "failed"
)

// CaptureSignal is the per-tick snapshot of window identity and input
// activity fed into the capture decision. Produced and discarded each tick.
type CaptureSignal struct {
	WindowTitle    string
	ProcessName    string
	URL            string
	Hostname       string
	SourceIP       string
	KeyboardActive bool
	MouseActive    bool
	Fingerprint    []byte // optional perceptual fingerprint
}

// CaptureDecision is the outcome of evaluating one tick
type CaptureDecision struct {
	ShouldCapture bool
	Reason        CaptureReason
}

// CaptureEvent is one durably recorded moment. Immutable once written,
// except for late-bound classification fields attached asynchronously.
type CaptureEvent struct {
	ID             int64
	Timestamp      time.Time
	WindowTitle    string
	ProcessName    string
	URL            string
	Hostname       string
	ClientCode     string
	Confidence     float64
	CaptureType    CaptureType
	CaptureReason  CaptureReason
	ScreenshotRef  string // opaque reference, e.g. a file id; empty if none
	Fingerprint    []byte
	KeyboardActive bool
	MouseActive    bool
	Synced         bool
	CreatedAt      time.Time

	// Late-bound classification, attached after creation
	AIClientCode  string
	AIConfidence  float64
	AIDescription string
	AIModel       string
}

// Validate checks if the event has required fields
func (e *CaptureEvent) Validate() error {
	if e.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.CaptureReason == "" {
		return errors.New("capture_reason is required")
	}
	return nil
}
