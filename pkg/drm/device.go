package drm

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DeviceFile represents an open DRM render node file descriptor
type DeviceFile struct {
	fd   int
	path string
}

// OpenDevice opens a DRM render node by path
func OpenDevice(path string) (*DeviceFile, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		errno, ok := err.(unix.Errno)
		if ok {
			return nil, StatusFromErrno(errno, "opening device "+path)
		}
		return nil, NewErrorWithCause(StatusIoctlFailed, "opening device "+path, err)
	}
	return &DeviceFile{fd: fd, path: path}, nil
}

// Close closes the device file
func (d *DeviceFile) Close() error {
	if d.fd >= 0 {
		err := unix.Close(d.fd)
		d.fd = -1
		if err != nil {
			return NewErrorWithCause(StatusIoctlFailed, "closing device", err)
		}
	}
	return nil
}

// Fd returns the file descriptor
func (d *DeviceFile) Fd() int {
	return d.fd
}

// Path returns the device path
func (d *DeviceFile) Path() string {
	return d.path
}

// ioctl performs an ioctl syscall
func (d *DeviceFile) ioctl(cmd uint32, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), uintptr(cmd), uintptr(arg))
		if errno == unix.EINTR {
			continue
		}
		if errno != 0 {
			return StatusFromErrno(errno, "ioctl")
		}
		return nil
	}
}

// Version holds the driver identity reported by the DRM_VERSION ioctl
type Version struct {
	Major int32
	Minor int32
	Patch int32
	Name  string
	Date  string
	Desc  string
}

// Version queries the kernel driver identity. Two ioctl passes: the first
// reports string lengths, the second fills caller-provided buffers.
func (d *DeviceFile) Version() (*Version, error) {
	var args drmVersion
	if err := d.ioctl(ioctlVersion, unsafe.Pointer(&args)); err != nil {
		return nil, err
	}

	name := make([]byte, args.NameLen+1)
	date := make([]byte, args.DateLen+1)
	desc := make([]byte, args.DescLen+1)
	args.Name = uint64(uintptr(unsafe.Pointer(&name[0])))
	args.Date = uint64(uintptr(unsafe.Pointer(&date[0])))
	args.Desc = uint64(uintptr(unsafe.Pointer(&desc[0])))

	if err := d.ioctl(ioctlVersion, unsafe.Pointer(&args)); err != nil {
		return nil, err
	}

	return &Version{
		Major: args.Major,
		Minor: args.Minor,
		Patch: args.Patch,
		Name:  string(name[:args.NameLen]),
		Date:  string(date[:args.DateLen]),
		Desc:  string(desc[:args.DescLen]),
	}, nil
}

// ScanDevices scans for DRM render nodes (/dev/dri/renderD128 and up)
func ScanDevices() ([]string, error) {
	var devices []string
	for i := 128; i < 192; i++ {
		path := fmt.Sprintf("/dev/dri/renderD%d", i)
		if _, err := os.Stat(path); err == nil {
			devices = append(devices, path)
		}
	}
	return devices, nil
}
