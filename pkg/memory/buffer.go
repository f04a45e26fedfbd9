package memory

import (
	"fmt"
	"unsafe"
)

type boKind int

const (
	boPhysical boKind = iota
	boVirtual
)

// BufferObject is a device-visible memory region. A physical buffer owns a
// GEM handle, a CPU mapping and a GPU virtual-address range; a virtual
// buffer is a sparse container of child buffers and owns nothing itself.
// The active variant is tagged, never inferred from context.
type BufferObject struct {
	kind boKind

	// physical
	mgr    *Manager
	handle uint32
	va     *VARange
	size   uint64
	cpu    []byte

	// virtual
	children []*BufferObject
}

// NewVirtual creates a virtual buffer grouping the given children. The
// children keep their own lifetimes; freeing the group frees nothing.
func NewVirtual(children ...*BufferObject) *BufferObject {
	return &BufferObject{
		kind:     boVirtual,
		children: children,
	}
}

// IsVirtual reports whether this is a virtual (sparse) buffer
func (b *BufferObject) IsVirtual() bool {
	return b.kind == boVirtual
}

// Children returns the member buffers of a virtual buffer
func (b *BufferObject) Children() []*BufferObject {
	if b.kind != boVirtual {
		return nil
	}
	return b.children
}

// Handle returns the GEM handle of a physical buffer
func (b *BufferObject) Handle() uint32 {
	return b.handle
}

// GPUAddress returns the device virtual address of a physical buffer
func (b *BufferObject) GPUAddress() uint64 {
	if b.kind != boPhysical {
		return 0
	}
	return b.va.addr
}

// Size returns the buffer size in bytes
func (b *BufferObject) Size() uint64 {
	return b.size
}

// Bytes returns the CPU mapping of a physical buffer
func (b *BufferObject) Bytes() []byte {
	return b.cpu
}

// Words returns the CPU mapping viewed as 32-bit dwords
func (b *BufferObject) Words() []uint32 {
	if len(b.cpu) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b.cpu[0])), len(b.cpu)/4)
}

// Free releases the buffer: VA unmap, CPU unmap and GEM close, using the
// same tuple recorded at allocation. Must not be called while a submission
// referencing the buffer is in flight.
func (b *BufferObject) Free() error {
	switch b.kind {
	case boVirtual:
		// children are owned by their own allocators
		b.children = nil
		return nil
	case boPhysical:
		if b.mgr == nil {
			return fmt.Errorf("buffer already freed")
		}
		err := b.mgr.free(b)
		b.mgr = nil
		b.cpu = nil
		return err
	}
	return fmt.Errorf("unknown buffer kind %d", b.kind)
}
