package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/banknotes/internal/display"
	"gocv.io/x/gocv"
)

// Preview is a display.Display that serves frames and detections over HTTP
// instead of opening a local window.
type Preview struct {
	frames     *FrameBuffer
	detections *DetectionsHandler
	server     *Server
	httpServer *http.Server

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var (
	_ display.Display   = (*Preview)(nil)
	_ display.Publisher = (*Preview)(nil)
)

// NewPreview creates a Preview. Call Serve to start listening.
func NewPreview() *Preview {
	p := &Preview{
		frames:     NewFrameBuffer(),
		detections: NewDetectionsHandler(),
		quit:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	p.server = New(Config{
		Frames:     p.frames,
		Detections: p.detections,
		Quit:       p.Quit,
	})
	return p
}

// Handler returns the HTTP handler serving the preview API.
func (p *Preview) Handler() http.Handler {
	return p.server
}

// Serve starts listening on addr in the background and returns the bound address.
func (p *Preview) Serve(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	p.httpServer = &http.Server{
		Handler:           p.server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := p.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("preview server error: %v", err)
		}
	}()

	log.Printf("Preview available at http://%s/", ln.Addr())
	return ln.Addr(), nil
}

// Show encodes frame as JPEG and publishes it to stream clients.
func (p *Preview) Show(frame gocv.Mat) {
	if frame.Empty() {
		return
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		log.Printf("failed to encode preview frame: %v", err)
		return
	}
	defer buf.Close()

	jpeg := append([]byte(nil), buf.GetBytes()...)
	p.frames.Set(jpeg)
}

// WaitKey returns 'q' once a quit was requested over HTTP, otherwise
// display.KeyNone after delayMs. A delay of 0 blocks until quit or Close.
func (p *Preview) WaitKey(delayMs int) int {
	if delayMs <= 0 {
		select {
		case <-p.quit:
			return 'q'
		case <-p.done:
			return display.KeyNone
		}
	}

	timer := time.NewTimer(time.Duration(delayMs) * time.Millisecond)
	defer timer.Stop()

	select {
	case <-p.quit:
		return 'q'
	case <-p.done:
		return display.KeyNone
	case <-timer.C:
		return display.KeyNone
	}
}

// Quit makes the next WaitKey return 'q'.
func (p *Preview) Quit() {
	select {
	case p.quit <- struct{}{}:
	default:
	}
}

// Publish forwards ev to detection clients.
func (p *Preview) Publish(ev display.Event) {
	p.detections.Broadcast(ev)
}

// Close disconnects clients and stops the HTTP server.
func (p *Preview) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)
		p.frames.Close()
		p.detections.CloseAll()

		if p.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			err = p.httpServer.Shutdown(ctx)
		}
	})
	return err
}
