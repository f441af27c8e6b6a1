package server

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// DefaultSnapshotQuality is the lossy WebP quality used when the request does not set one.
const DefaultSnapshotQuality = 80

// SnapshotHandler serves the latest frame re-encoded as a single WebP image.
type SnapshotHandler struct {
	frames *FrameBuffer
}

// NewSnapshotHandler creates a new SnapshotHandler reading from frames.
func NewSnapshotHandler(frames *FrameBuffer) *SnapshotHandler {
	return &SnapshotHandler{frames: frames}
}

// ServeHTTP handles GET /api/snapshot[?quality=1..100|lossless=1].
func (h *SnapshotHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	opts := &webp.Options{Quality: DefaultSnapshotQuality}
	if q := r.URL.Query().Get("quality"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 100 {
			http.Error(w, "quality must be between 1 and 100", http.StatusBadRequest)
			return
		}
		opts.Quality = float32(n)
	}
	if r.URL.Query().Get("lossless") == "1" {
		opts.Lossless = true
	}

	jpeg, _, _ := h.frames.Latest()
	if len(jpeg) == 0 {
		http.Error(w, "No frame available", http.StatusServiceUnavailable)
		return
	}

	img, err := imaging.Decode(bytes.NewReader(jpeg))
	if err != nil {
		http.Error(w, "Failed to decode frame", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, opts); err != nil {
		http.Error(w, "Failed to encode snapshot", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/webp")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}
