package device

import "errors"

// Errors for device operations
var (
	ErrNoDevices    = errors.New("no amdgpu devices found")
	ErrNotAmdgpu    = errors.New("not an amdgpu device")
	ErrDeviceClosed = errors.New("device is closed")
)
