package display

import (
	"sync"

	"gocv.io/x/gocv"
)

// Window is a native OpenCV window.
// It must be used from the goroutine that created it.
type Window struct {
	title  string
	window *gocv.Window
	mu     sync.Mutex
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{
		title:  title,
		window: gocv.NewWindow(title),
	}
}

// Title returns the window title.
func (w *Window) Title() string {
	return w.title
}

// Show draws the frame in the window.
func (w *Window) Show(frame gocv.Mat) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil || frame.Empty() {
		return
	}
	w.window.IMShow(frame)
}

// WaitKey pumps window events for delayMs and returns the key pressed, if any.
func (w *Window) WaitKey(delayMs int) int {
	w.mu.Lock()
	win := w.window
	w.mu.Unlock()

	if win == nil {
		return KeyNone
	}
	return win.WaitKey(delayMs)
}

// Close destroys the window. It is safe to call more than once.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.window == nil {
		return nil
	}

	err := w.window.Close()
	w.window = nil
	return err
}
