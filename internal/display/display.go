// Package display shows annotated frames to the operator.
package display

import (
	"time"

	"github.com/ayusman/banknotes/internal/inference"
	"gocv.io/x/gocv"
)

// KeyNone is returned by WaitKey when no key was pressed before the delay elapsed.
const KeyNone = -1

// Display shows frames and reports key presses.
type Display interface {
	// Show presents the frame. The display must not keep a reference to it.
	Show(frame gocv.Mat)

	// WaitKey waits up to delayMs for a key press and returns its code, or KeyNone.
	// A delay of 0 waits until a key is pressed.
	WaitKey(delayMs int) int

	// Close releases the display.
	Close() error
}

// Event describes the detections drawn on one frame.
type Event struct {
	Session     string                 `json:"session"`
	Source      string                 `json:"source"`
	Predictions []inference.Prediction `json:"predictions"`
	At          time.Time              `json:"at"`
}

// Publisher is implemented by displays that also forward detection events.
type Publisher interface {
	Publish(ev Event)
}

// IsQuit reports whether key is the quit key 'q'. 'Q' does not quit.
func IsQuit(key int) bool {
	return key != KeyNone && key&0xFF == 'q'
}
