package capture

import (
	"sync"
	"time"
)

// ActivityMonitor is a thread-safe view of recent keyboard and mouse
// activity. An external notifier (the platform hook layer) calls NoteKeyboard
// and NoteMouse; the capture loop only reads. Activity counts as live for
// activeWindow after the last observed input.
type ActivityMonitor struct {
	mu           sync.Mutex
	lastKeyboard time.Time
	lastMouse    time.Time
	activeWindow time.Duration
}

// NewActivityMonitor creates a monitor with the given liveness window
func NewActivityMonitor(activeWindow time.Duration) *ActivityMonitor {
	return &ActivityMonitor{activeWindow: activeWindow}
}

// NoteKeyboard records a keyboard input observation
func (m *ActivityMonitor) NoteKeyboard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastKeyboard = time.Now()
}

// NoteMouse records a mouse input observation
func (m *ActivityMonitor) NoteMouse() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastMouse = time.Now()
}

// IsKeyboardActive reports whether keyboard input was seen recently
func (m *ActivityMonitor) IsKeyboardActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.lastKeyboard.IsZero() && time.Since(m.lastKeyboard) < m.activeWindow
}

// IsMouseActive reports whether mouse input was seen recently
func (m *ActivityMonitor) IsMouseActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.lastMouse.IsZero() && time.Since(m.lastMouse) < m.activeWindow
}

// IdleSeconds returns seconds since any input, or -1 if none was ever seen
func (m *ActivityMonitor) IdleSeconds() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	last := m.lastKeyboard
	if m.lastMouse.After(last) {
		last = m.lastMouse
	}
	if last.IsZero() {
		return -1
	}
	return time.Since(last).Seconds()
}
