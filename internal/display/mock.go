package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDisplay records shown frames and plays back scripted key presses.
type MockDisplay struct {
	mu     sync.Mutex
	shown  [][]byte
	sizes  [][2]int
	keys   []int
	waits  []int
	events []Event
	closed bool
}

// NewMockDisplay creates a MockDisplay that returns keys in order, then KeyNone.
func NewMockDisplay(keys ...int) *MockDisplay {
	return &MockDisplay{keys: keys}
}

// Show copies the frame bytes so tests can inspect them after the Mat is closed.
func (m *MockDisplay) Show(frame gocv.Mat) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.shown = append(m.shown, frame.ToBytes())
	m.sizes = append(m.sizes, [2]int{frame.Cols(), frame.Rows()})
}

// WaitKey returns the next scripted key.
func (m *MockDisplay) WaitKey(delayMs int) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.waits = append(m.waits, delayMs)
	if len(m.keys) == 0 {
		return KeyNone
	}
	k := m.keys[0]
	m.keys = m.keys[1:]
	return k
}

// Publish records a detection event.
func (m *MockDisplay) Publish(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

// Close marks the display closed.
func (m *MockDisplay) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Shown returns the bytes of every frame shown so far.
func (m *MockDisplay) Shown() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.shown...)
}

// Sizes returns the width and height of every frame shown so far.
func (m *MockDisplay) Sizes() [][2]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][2]int(nil), m.sizes...)
}

// Waits returns the delays passed to WaitKey.
func (m *MockDisplay) Waits() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.waits...)
}

// Events returns the published events.
func (m *MockDisplay) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Closed reports whether Close was called.
func (m *MockDisplay) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
