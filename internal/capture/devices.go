package capture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"gocv.io/x/gocv"
)

var (
	// ErrNoDevices is returned when no camera could be found.
	ErrNoDevices = errors.New("no cameras found")

	// ErrInvalidIndex is returned for a device index outside the listed devices.
	ErrInvalidIndex = errors.New("invalid camera index")
)

// Device is a camera that can be opened by index.
type Device struct {
	Index int
	Name  string
}

// String returns "index: name".
func (d Device) String() string {
	return fmt.Sprintf("%d: %s", d.Index, d.Name)
}

// Provider enumerates and opens cameras.
type Provider interface {
	ListDevices() ([]Device, error)
	OpenDevice(index int) (Camera, error)
}

// SystemProvider finds cameras by probing OpenCV device indices.
type SystemProvider struct {
	maxProbe int
	settings Settings
	sysfs    string
}

// NewSystemProvider probes device indices 0..maxProbe-1.
func NewSystemProvider(maxProbe int, settings Settings) *SystemProvider {
	return &SystemProvider{
		maxProbe: maxProbe,
		settings: settings,
		sysfs:    "/sys/class/video4linux",
	}
}

// ListDevices returns the indices that open successfully.
// Probing stops at the first index that fails, since OpenCV numbers devices contiguously.
func (p *SystemProvider) ListDevices() ([]Device, error) {
	var devices []Device

	for i := 0; i < p.maxProbe; i++ {
		vc, err := gocv.OpenVideoCapture(i)
		if err != nil {
			break
		}
		opened := vc.IsOpened()
		vc.Close()
		if !opened {
			break
		}

		devices = append(devices, Device{Index: i, Name: p.deviceName(i)})
	}

	if len(devices) == 0 {
		return nil, ErrNoDevices
	}
	return devices, nil
}

// OpenDevice opens the camera at index.
func (p *SystemProvider) OpenDevice(index int) (Camera, error) {
	if index < 0 {
		return nil, ErrInvalidIndex
	}

	cam := NewCamera(index, p.settings)
	if err := cam.Open(); err != nil {
		return nil, fmt.Errorf("open camera %d: %w", index, err)
	}
	return cam, nil
}

// deviceName reads the V4L2 device name when available.
func (p *SystemProvider) deviceName(index int) string {
	return readDeviceName(p.sysfs, index)
}

func readDeviceName(sysfs string, index int) string {
	data, err := os.ReadFile(filepath.Join(sysfs, fmt.Sprintf("video%d", index), "name"))
	if err != nil {
		return fmt.Sprintf("Camera %d", index)
	}

	name := strings.TrimSpace(string(data))
	if name == "" {
		return fmt.Sprintf("Camera %d", index)
	}
	return name
}

// FindDevice returns the device with the given index.
func FindDevice(devices []Device, index int) (Device, bool) {
	return lo.Find(devices, func(d Device) bool { return d.Index == index })
}

// ValidIndex reports whether index names one of devices.
func ValidIndex(devices []Device, index int) bool {
	return lo.ContainsBy(devices, func(d Device) bool { return d.Index == index })
}
