package device

import (
	"fmt"
	"os"
	"path/filepath"
)

// DeviceInfo contains discovered device node information
type DeviceInfo struct {
	Path     string
	DeviceID string
}

// DeviceScanner scans for DRM render nodes
type DeviceScanner struct {
	devPath string
}

// NewScanner creates a new device scanner
func NewScanner() *DeviceScanner {
	return &DeviceScanner{
		devPath: "/dev/dri",
	}
}

// Scan finds all DRM render nodes. Render minors start at 128; the scanner
// does not open the nodes, so non-amdgpu devices are filtered out later by
// Open.
func (s *DeviceScanner) Scan() ([]DeviceInfo, error) {
	if s.devPath == "" {
		s.devPath = "/dev/dri"
	}

	var devices []DeviceInfo
	for i := 128; i < 192; i++ {
		name := fmt.Sprintf("renderD%d", i)
		devPath := filepath.Join(s.devPath, name)
		if _, err := os.Stat(devPath); err == nil {
			devices = append(devices, DeviceInfo{
				Path:     devPath,
				DeviceID: name,
			})
		}
	}
	return devices, nil
}

// Scan finds all DRM render nodes using the default scanner
func Scan() ([]DeviceInfo, error) {
	return NewScanner().Scan()
}
