package display

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestIsQuit(t *testing.T) {
	tests := []struct {
		key  int
		want bool
	}{
		{'q', true},
		{'Q', false},
		{'Q' | 0x100000, false},
		{'q' | 0x100000, true}, // modifier bits set by some backends
		{'x', false},
		{27, false},
		{KeyNone, false},
	}

	for _, tt := range tests {
		if got := IsQuit(tt.key); got != tt.want {
			t.Errorf("IsQuit(%d) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestMockDisplay(t *testing.T) {
	m := NewMockDisplay('a', 'q')

	var _ Display = m
	var _ Publisher = m

	frame := gocv.NewMatWithSize(4, 6, gocv.MatTypeCV8UC3)
	defer frame.Close()

	m.Show(frame)

	if got := m.WaitKey(1); got != 'a' {
		t.Errorf("WaitKey() = %d, want 'a'", got)
	}
	if got := m.WaitKey(1); got != 'q' {
		t.Errorf("WaitKey() = %d, want 'q'", got)
	}
	if got := m.WaitKey(0); got != KeyNone {
		t.Errorf("WaitKey() = %d, want KeyNone", got)
	}

	if len(m.Shown()) != 1 {
		t.Fatalf("Shown() = %d frames, want 1", len(m.Shown()))
	}
	if len(m.Shown()[0]) != 4*6*3 {
		t.Errorf("frame bytes = %d, want %d", len(m.Shown()[0]), 4*6*3)
	}
	if m.Sizes()[0] != [2]int{6, 4} {
		t.Errorf("Sizes()[0] = %v, want [6 4]", m.Sizes()[0])
	}
	if got := m.Waits(); len(got) != 3 || got[2] != 0 {
		t.Errorf("Waits() = %v", got)
	}

	m.Publish(Event{Session: "s"})
	if len(m.Events()) != 1 {
		t.Errorf("Events() = %d, want 1", len(m.Events()))
	}

	if m.Closed() {
		t.Error("should not be closed yet")
	}
	m.Close()
	if !m.Closed() {
		t.Error("should be closed")
	}
}
