package testutil

import (
	"testing"

	"github.com/emergingrobotics/go-amdgpu/pkg/device"
)

// SkipIfNoDevice skips the test unless an amdgpu render node is present
// and openable.
func SkipIfNoDevice(t *testing.T) *device.Device {
	t.Helper()
	dev, err := device.OpenFirst()
	if err != nil {
		t.Skipf("no amdgpu device available: %v", err)
	}
	t.Cleanup(func() { dev.Close() })
	return dev
}
