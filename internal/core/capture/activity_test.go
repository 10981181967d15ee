package capture

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestActivityMonitor_InitiallyIdle(t *testing.T) {
	m := NewActivityMonitor(5 * time.Second)

	assert.False(t, m.IsKeyboardActive())
	assert.False(t, m.IsMouseActive())
	assert.Equal(t, -1.0, m.IdleSeconds())
}

func TestActivityMonitor_NotesInput(t *testing.T) {
	m := NewActivityMonitor(5 * time.Second)

	m.NoteKeyboard()
	assert.True(t, m.IsKeyboardActive())
	assert.False(t, m.IsMouseActive())

	m.NoteMouse()
	assert.True(t, m.IsMouseActive())
	assert.GreaterOrEqual(t, m.IdleSeconds(), 0.0)
	assert.Less(t, m.IdleSeconds(), 1.0)
}

func TestActivityMonitor_InputExpires(t *testing.T) {
	m := NewActivityMonitor(10 * time.Millisecond)

	m.NoteKeyboard()
	time.Sleep(20 * time.Millisecond)

	assert.False(t, m.IsKeyboardActive())
}

func TestActivityMonitor_ConcurrentAccess(t *testing.T) {
	m := NewActivityMonitor(5 * time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.NoteKeyboard()
				m.NoteMouse()
				_ = m.IsKeyboardActive()
				_ = m.IdleSeconds()
			}
		}()
	}
	wg.Wait()

	assert.True(t, m.IsKeyboardActive())
}
