package server

import (
	"fmt"
	"net/http"
	"sync"
)

// FrameBuffer holds the most recent JPEG-encoded frame.
type FrameBuffer struct {
	mu     sync.Mutex
	jpeg   []byte
	seq    uint64
	notify chan struct{}
	closed bool
}

// NewFrameBuffer creates an empty FrameBuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{notify: make(chan struct{})}
}

// Set replaces the latest frame and wakes all waiting streams.
func (b *FrameBuffer) Set(jpeg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.jpeg = jpeg
	b.seq++
	close(b.notify)
	b.notify = make(chan struct{})
}

// Latest returns the current frame, its sequence number and a channel that
// is closed when the next frame arrives.
func (b *FrameBuffer) Latest() ([]byte, uint64, <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.jpeg, b.seq, b.notify
}

// Close wakes all waiting streams and ends them.
func (b *FrameBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.notify)
	}
}

// Closed reports whether Close was called.
func (b *FrameBuffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// StreamHandler serves the latest frames as MJPEG.
type StreamHandler struct {
	frames *FrameBuffer
}

// NewStreamHandler creates a new StreamHandler reading from frames.
func NewStreamHandler(frames *FrameBuffer) *StreamHandler {
	return &StreamHandler{frames: frames}
}

// ServeHTTP streams MJPEG frames to connected clients.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var sent uint64
	for {
		jpeg, seq, next := h.frames.Latest()

		if seq != sent && len(jpeg) > 0 {
			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(jpeg))
			if _, err := w.Write(jpeg); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")

			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			sent = seq
		}

		select {
		case <-r.Context().Done():
			return
		case <-next:
			if h.frames.Closed() {
				return
			}
		}
	}
}
