package device

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/emergingrobotics/go-amdgpu/pkg/drm"
)

// driverName is the kernel driver this package binds to
const driverName = "amdgpu"

// Device represents an open amdgpu render node
type Device struct {
	df      *drm.DeviceFile
	version *drm.Version
	info    *drm.DeviceInfo

	mu     sync.RWMutex
	hwIP   map[drm.HWIPType]*drm.HWIPInfo
	closed bool
}

// Open opens an amdgpu device by path. Nodes driven by another DRM driver
// are rejected with ErrNotAmdgpu.
func Open(path string) (*Device, error) {
	df, err := drm.OpenDevice(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open device: %w", err)
	}

	version, err := df.Version()
	if err != nil {
		df.Close()
		return nil, fmt.Errorf("failed to query driver version: %w", err)
	}
	if version.Name != driverName {
		df.Close()
		return nil, fmt.Errorf("%w: %s is driven by %q", ErrNotAmdgpu, path, version.Name)
	}

	info, err := df.QueryDeviceInfo()
	if err != nil {
		df.Close()
		return nil, fmt.Errorf("failed to query device info: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"path":   path,
		"driver": fmt.Sprintf("%d.%d.%d", version.Major, version.Minor, version.Patch),
		"family": info.Family,
	}).Debug("opened amdgpu render node")

	return &Device{
		df:      df,
		version: version,
		info:    info,
		hwIP:    make(map[drm.HWIPType]*drm.HWIPInfo),
	}, nil
}

// OpenFirst opens the first available amdgpu device
func OpenFirst() (*Device, error) {
	devices, err := Scan()
	if err != nil {
		return nil, fmt.Errorf("failed to scan devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, ErrNoDevices
	}
	return Open(devices[0].Path)
}

// Close closes the device
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.df.Close()
}

// Path returns the device path
func (d *Device) Path() string {
	return d.df.Path()
}

// File returns the underlying DRM device file
func (d *Device) File() *drm.DeviceFile {
	return d.df
}

// Family returns the hardware family identifier
func (d *Device) Family() uint32 {
	return d.info.Family
}

// Info returns the cached static device information
func (d *Device) Info() *drm.DeviceInfo {
	return d.info
}

// DriverVersion returns the kernel driver version string
func (d *Device) DriverVersion() string {
	return fmt.Sprintf("%d.%d.%d", d.version.Major, d.version.Minor, d.version.Patch)
}

// HWIPInfo returns capabilities of the given IP block, cached per type
func (d *Device) HWIPInfo(ip drm.HWIPType) (*drm.HWIPInfo, error) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return nil, ErrDeviceClosed
	}
	info, ok := d.hwIP[ip]
	d.mu.RUnlock()
	if ok {
		return info, nil
	}

	info, err := d.df.QueryHWIPInfo(ip, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to query hw ip info for %s: %w", ip, err)
	}

	d.mu.Lock()
	d.hwIP[ip] = info
	d.mu.Unlock()
	return info, nil
}

// RingAvailable reports whether the given ring exists on the IP block
func (d *Device) RingAvailable(ip drm.HWIPType, ring uint32) (bool, error) {
	info, err := d.HWIPInfo(ip)
	if err != nil {
		return false, err
	}
	return info.AvailableRings&(1<<ring) != 0, nil
}

// Capabilities reports, per IP type, whether at least one ring is exposed.
// Query failures count as absent: older kernels reject unknown IP types.
func (d *Device) Capabilities() [drm.NumHWIPTypes]bool {
	var caps [drm.NumHWIPTypes]bool
	for ip := drm.HWIPType(0); ip < drm.NumHWIPTypes; ip++ {
		info, err := d.HWIPInfo(ip)
		if err != nil {
			continue
		}
		caps[ip] = info.AvailableRings != 0
	}
	return caps
}
