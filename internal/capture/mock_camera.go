package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockCamera plays back pre-recorded frames for testing
type MockCamera struct {
	frames  []*gocv.Mat
	index   int
	loop    bool
	mu      sync.Mutex
	running bool
	opens   int
	closes  int
	openErr error
}

func NewMockCamera(frames []*gocv.Mat, loop bool) *MockCamera {
	return &MockCamera{
		frames: frames,
		loop:   loop,
	}
}

// SetOpenError makes the next Open calls fail with err.
func (c *MockCamera) SetOpenError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++
	if c.openErr != nil {
		return c.openErr
	}
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	c.running = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}

	if c.index >= len(c.frames) {
		if !c.loop || len(c.frames) == 0 {
			return nil, ErrFrameRead
		}
		c.index = 0
	}

	// Clone the frame so the original isn't modified
	frame := c.frames[c.index].Clone()
	c.index++

	return &frame, nil
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Closes returns how many times Close was called
func (c *MockCamera) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}

// Reset restarts playback from the beginning
func (c *MockCamera) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = 0
}

// MockProvider serves a fixed device list backed by one MockCamera
type MockProvider struct {
	Devices []Device
	Camera  *MockCamera
	ListErr error

	mu     sync.Mutex
	opened []int
}

func (p *MockProvider) ListDevices() ([]Device, error) {
	if p.ListErr != nil {
		return nil, p.ListErr
	}
	if len(p.Devices) == 0 {
		return nil, ErrNoDevices
	}
	return p.Devices, nil
}

func (p *MockProvider) OpenDevice(index int) (Camera, error) {
	p.mu.Lock()
	p.opened = append(p.opened, index)
	p.mu.Unlock()

	if !ValidIndex(p.Devices, index) {
		return nil, ErrInvalidIndex
	}
	if err := p.Camera.Open(); err != nil {
		return nil, err
	}
	return p.Camera, nil
}

// Opened returns the indices passed to OpenDevice
func (p *MockProvider) Opened() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.opened...)
}
