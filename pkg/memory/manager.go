// Package memory manages device-visible buffer objects: GEM allocation,
// CPU mapping and GPU virtual-address assignment, with explicit release.
package memory

import (
	"fmt"
	"sync"

	"github.com/emergingrobotics/go-amdgpu/pkg/device"
	"github.com/emergingrobotics/go-amdgpu/pkg/drm"
)

// Fallback VA window used when the device-info query reports no range
// (never the case on real kernels, but keeps the allocator total).
const (
	defaultVABase  = 0x100000000
	defaultVALimit = 0x200000000
)

// Manager allocates buffer objects on one device. GPU virtual addresses
// are handed out from the UMD window reported by the kernel; the kernel
// validates mappings, the manager only guarantees it never reuses a range
// while it is held.
type Manager struct {
	dev *device.Device
	va  vaAllocator
}

// NewManager creates a buffer manager for the device
func NewManager(dev *device.Device) *Manager {
	base := dev.Info().VirtualAddressOffset
	limit := dev.Info().VirtualAddressMax
	if base == 0 && limit == 0 {
		base = defaultVABase
		limit = defaultVALimit
	}
	return &Manager{
		dev: dev,
		va:  vaAllocator{next: base, limit: limit},
	}
}

// Alloc allocates a buffer object of the given size in the given memory
// domain, maps it for CPU access, and maps it into the GPU address space.
// The returned region is not zeroed; callers clear it before writing
// packet data.
func (m *Manager) Alloc(size, alignment uint64, domains, flags uint64) (*BufferObject, error) {
	df := m.dev.File()

	handle, err := df.GemCreate(size, alignment, domains, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate %d-byte buffer: %w", size, err)
	}

	offset, err := df.GemMmapOffset(handle)
	if err != nil {
		df.GemClose(handle)
		return nil, fmt.Errorf("failed to get mmap offset: %w", err)
	}
	cpu, err := df.Mmap(offset, int(size))
	if err != nil {
		df.GemClose(handle)
		return nil, fmt.Errorf("failed to map buffer: %w", err)
	}

	va, err := m.va.reserve(size, alignment)
	if err != nil {
		df.Munmap(cpu)
		df.GemClose(handle)
		return nil, err
	}
	err = df.GemVAOp(handle, drm.VAOpMap,
		drm.VAFlagReadable|drm.VAFlagWriteable|drm.VAFlagExecutable,
		va.addr, 0, size)
	if err != nil {
		df.Munmap(cpu)
		df.GemClose(handle)
		return nil, fmt.Errorf("failed to map buffer at va 0x%x: %w", va.addr, err)
	}

	return &BufferObject{
		kind:   boPhysical,
		mgr:    m,
		handle: handle,
		va:     va,
		size:   size,
		cpu:    cpu,
	}, nil
}

// free releases a physical buffer with the same tuple used at allocation
func (m *Manager) free(bo *BufferObject) error {
	df := m.dev.File()

	err := df.GemVAOp(bo.handle, drm.VAOpUnmap, 0, bo.va.addr, 0, bo.size)
	if unmapErr := df.Munmap(bo.cpu); err == nil {
		err = unmapErr
	}
	if closeErr := df.GemClose(bo.handle); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to free buffer 0x%x: %w", bo.va.addr, err)
	}
	return nil
}

// VARange is an opaque handle to a reserved GPU virtual-address range
type VARange struct {
	addr uint64
	size uint64
}

// Address returns the start of the reserved range
func (r *VARange) Address() uint64 {
	return r.addr
}

// vaAllocator hands out GPU virtual addresses by bumping a cursor.
// Ranges are not recycled; test processes allocate a handful of buffers.
type vaAllocator struct {
	mu    sync.Mutex
	next  uint64
	limit uint64
}

func (a *vaAllocator) reserve(size, alignment uint64) (*VARange, error) {
	if size == 0 {
		return nil, fmt.Errorf("zero-size va reservation")
	}
	if alignment == 0 {
		alignment = 4096
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	addr := (a.next + alignment - 1) &^ (alignment - 1)
	end := addr + size
	if end < addr || end > a.limit {
		return nil, fmt.Errorf("va space exhausted: need %d bytes at 0x%x, limit 0x%x",
			size, addr, a.limit)
	}
	a.next = end
	return &VARange{addr: addr, size: size}, nil
}
