// Package capture provides camera enumeration and frame capture using GoCV (OpenCV).
package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrFrameRead is returned when the device delivers no frame.
	ErrFrameRead = errors.New("failed to read frame from camera")
)

// Settings holds capture resolution. Zero values keep the device defaults.
type Settings struct {
	Width  int
	Height int
}

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	deviceID int
	settings Settings
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
}

// NewCamera creates a new Camera for the given device index.
func NewCamera(deviceID int, settings Settings) Camera {
	return &cameraImpl{
		deviceID: deviceID,
		settings: settings,
	}
}

// Open opens the camera for capturing frames.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return err
	}

	if !capture.IsOpened() {
		capture.Close()
		return ErrCameraNotOpen
	}

	if c.settings.Width > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(c.settings.Width))
	}
	if c.settings.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameHeight, float64(c.settings.Height))
	}

	c.capture = capture
	c.running = true

	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false

	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok {
		mat.Close()
		return nil, ErrFrameRead
	}

	if mat.Empty() {
		mat.Close()
		return nil, ErrFrameRead
	}

	return &mat, nil
}

// IsOpen returns true if the camera is currently open.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
