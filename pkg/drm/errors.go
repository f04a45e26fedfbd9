package drm

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Status represents a DRM operation status code
type Status int

// Status codes for kernel-reported failures
const (
	StatusSuccess          Status = 0
	StatusInvalidArgument  Status = 1
	StatusOutOfMemory      Status = 2
	StatusContextLost      Status = 3
	StatusPermissionDenied Status = 4
	StatusNoDevice         Status = 5
	StatusTimeout          Status = 6
	StatusInterrupted      Status = 7
	StatusNotFound         Status = 8
	StatusBusy             Status = 9
	StatusNotSupported     Status = 10
	StatusIoctlFailed      Status = 11
)

var statusMessages = map[Status]string{
	StatusSuccess:          "success",
	StatusInvalidArgument:  "invalid argument",
	StatusOutOfMemory:      "out of memory",
	StatusContextLost:      "context lost",
	StatusPermissionDenied: "permission denied",
	StatusNoDevice:         "no such device",
	StatusTimeout:          "timeout",
	StatusInterrupted:      "interrupted",
	StatusNotFound:         "not found",
	StatusBusy:             "device busy",
	StatusNotSupported:     "operation not supported",
	StatusIoctlFailed:      "ioctl failed",
}

// String returns the human-readable status message
func (s Status) String() string {
	if msg, ok := statusMessages[s]; ok {
		return msg
	}
	return fmt.Sprintf("unknown status (%d)", int(s))
}

// Error represents an error from the DRM layer
type Error struct {
	Status  Status
	Context string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Context != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s: %v", e.Context, e.Status.String(), e.Cause)
		}
		return fmt.Sprintf("%s: %s", e.Context, e.Status.String())
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Status.String(), e.Cause)
	}
	return e.Status.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target status
func (e *Error) Is(target error) bool {
	var drmErr *Error
	if errors.As(target, &drmErr) {
		return e.Status == drmErr.Status
	}
	return false
}

// NewError creates a new Error with the given status
func NewError(status Status, context string) *Error {
	return &Error{
		Status:  status,
		Context: context,
	}
}

// NewErrorWithCause creates a new Error with an underlying cause
func NewErrorWithCause(status Status, context string, cause error) *Error {
	return &Error{
		Status:  status,
		Context: context,
		Cause:   cause,
	}
}

// ErrnoToStatus converts a Linux errno to a Status
func ErrnoToStatus(errno unix.Errno) Status {
	switch errno {
	case unix.ENOMEM, unix.ENOBUFS:
		return StatusOutOfMemory
	case unix.ECANCELED:
		return StatusContextLost
	case unix.EINVAL, unix.EFAULT:
		return StatusInvalidArgument
	case unix.EACCES, unix.EPERM:
		return StatusPermissionDenied
	case unix.ENODEV, unix.ENXIO:
		return StatusNoDevice
	case unix.ETIMEDOUT:
		return StatusTimeout
	case unix.EINTR:
		return StatusInterrupted
	case unix.ENOENT:
		return StatusNotFound
	case unix.EBUSY, unix.EAGAIN:
		return StatusBusy
	case unix.ENOTTY, unix.EOPNOTSUPP:
		return StatusNotSupported
	default:
		return StatusIoctlFailed
	}
}

// StatusFromErrno creates an Error from an errno. The errno is kept as the
// cause so errors.Is(err, unix.ENOMEM) still works for callers that retry.
func StatusFromErrno(errno unix.Errno, context string) *Error {
	return &Error{
		Status:  ErrnoToStatus(errno),
		Context: context,
		Cause:   errno,
	}
}
