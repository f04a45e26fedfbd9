// Package cs implements amdgpu command submission: scheduling contexts
// with user-fence buffers, kernel chunk assembly, submission with bounded
// retry under memory pressure, and gang submissions spanning engines.
package cs

import (
	"fmt"

	"github.com/emergingrobotics/go-amdgpu/pkg/device"
	"github.com/emergingrobotics/go-amdgpu/pkg/drm"
	"github.com/emergingrobotics/go-amdgpu/pkg/memory"
)

// MaxRingsPerType bounds the ring index within one IP type
const MaxRingsPerType = 8

// numFenceIPTypes sizes the per-context tables; one row of headroom past
// the last defined IP type, matching the fence buffer layout.
const numFenceIPTypes = drm.NumHWIPTypes + 1

// fenceBufferSize is the size of the per-context user-fence buffer. Each
// (ip, ring) slot holds 4 consecutive qwords: completed, preempted, reset,
// preempted-then-reset.
const (
	fenceBufferSize  = 4096
	fenceSlotQwords  = 4
	fenceBufferAlign = 8
)

// Compile-time check: every slot fits inside the fence buffer.
var _ [fenceBufferSize - numFenceIPTypes*MaxRingsPerType*fenceSlotQwords*8]struct{}

// Priority is the abstract scheduling priority of a context
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityRealtime
)

// kernelPriority maps the abstract priority onto the kernel's scale.
// Unknown values get the same default as PriorityMedium.
func (p Priority) kernelPriority() int32 {
	switch p {
	case PriorityRealtime:
		return drm.CtxPriorityVeryHigh
	case PriorityHigh:
		return drm.CtxPriorityHigh
	case PriorityMedium:
		return drm.CtxPriorityNormal
	case PriorityLow:
		return drm.CtxPriorityLow
	default:
		return drm.CtxPriorityNormal
	}
}

// ctxOps is the slice of the kernel interface the context manager needs
type ctxOps interface {
	CtxFree(ctxID uint32) error
	SyncobjCreate() (uint32, error)
	SyncobjDestroy(handle uint32) error
	WaitFences(fences []drm.Fence, waitAll bool, timeoutNS uint64) (bool, uint32, error)
}

// Context is a kernel scheduling context plus the per-ring bookkeeping
// that submissions need: the shared user-fence buffer, last-submitted
// sequence numbers and lazily created sync objects.
type Context struct {
	dev ctxOps
	id  uint32

	fenceBO *memory.BufferObject

	lastSeq      [numFenceIPTypes][MaxRingsPerType]uint64
	queueSyncobj [numFenceIPTypes][MaxRingsPerType]uint32
	syncobjInUse [numFenceIPTypes][MaxRingsPerType]bool
}

// CreateContext creates a kernel scheduling context with the given
// priority and allocates its user-fence buffer. The context must be
// released with Destroy; nothing is garbage-collected.
func CreateContext(dev *device.Device, mem *memory.Manager, priority Priority) (*Context, error) {
	id, err := dev.File().CtxCreate(priority.kernelPriority())
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduling context: %w", err)
	}

	fenceBO, err := mem.Alloc(fenceBufferSize, fenceBufferAlign,
		drm.GemDomainGTT, drm.GemCreateCPUAccessRequired)
	if err != nil {
		dev.File().CtxFree(id)
		return nil, fmt.Errorf("failed to allocate fence buffer: %w", err)
	}
	clear(fenceBO.Bytes())

	return &Context{
		dev:     dev.File(),
		id:      id,
		fenceBO: fenceBO,
	}, nil
}

// ID returns the kernel context handle
func (c *Context) ID() uint32 {
	return c.id
}

// FenceBuffer returns the context's user-fence buffer object
func (c *Context) FenceBuffer() *memory.BufferObject {
	return c.fenceBO
}

// FenceOffset returns the qword offset of the fence slot for an (ip, ring)
// pair. The 4-qwords-per-slot layout is a wire contract with the kernel.
func FenceOffset(ip drm.HWIPType, ring uint32) uint32 {
	return (uint32(ip)*MaxRingsPerType + ring) * fenceSlotQwords
}

// LastSeqNo returns the last sequence number submitted on (ip, ring)
func (c *Context) LastSeqNo(ip drm.HWIPType, ring uint32) uint64 {
	return c.lastSeq[ip][ring]
}

// noteSubmission records a successful submission's sequence number
func (c *Context) noteSubmission(ip drm.HWIPType, ring uint32, seqNo uint64) {
	c.lastSeq[ip][ring] = seqNo
}

// QueueSyncobj returns the sync object for (ip, ring), creating it on
// first use. Destroy releases every handle created here.
func (c *Context) QueueSyncobj(ip drm.HWIPType, ring uint32) (uint32, error) {
	if int(ip) >= numFenceIPTypes || ring >= MaxRingsPerType {
		return 0, fmt.Errorf("queue (%s, %d) out of range", ip, ring)
	}
	if c.syncobjInUse[ip][ring] {
		return c.queueSyncobj[ip][ring], nil
	}
	handle, err := c.dev.SyncobjCreate()
	if err != nil {
		return 0, fmt.Errorf("failed to create sync object for (%s, %d): %w", ip, ring, err)
	}
	c.queueSyncobj[ip][ring] = handle
	c.syncobjInUse[ip][ring] = true
	return handle, nil
}

// WaitForFence blocks until the kernel reports seqNo expired on the named
// engine. The timeout is deliberately infinite: a stuck GPU should surface
// as a hang for the external watchdog, not as a silent pass.
func (c *Context) WaitForFence(ip drm.HWIPType, ring uint32, seqNo uint64) error {
	fences := []drm.Fence{{
		CtxID:  c.id,
		IPType: uint32(ip),
		Ring:   ring,
		SeqNo:  seqNo,
	}}
	_, _, err := c.dev.WaitFences(fences, true, drm.TimeoutInfinite)
	if err != nil {
		return fmt.Errorf("failed to wait for fence %d on %s ring %d: %w", seqNo, ip, ring, err)
	}
	return nil
}

// Destroy releases the context. Order matters: sync objects first, then
// the fence buffer backing them, then the kernel context, so submitted
// work never outlives what it references.
func (c *Context) Destroy() error {
	var firstErr error

	for ip := 0; ip < numFenceIPTypes; ip++ {
		for ring := 0; ring < MaxRingsPerType; ring++ {
			if !c.syncobjInUse[ip][ring] {
				continue
			}
			if err := c.dev.SyncobjDestroy(c.queueSyncobj[ip][ring]); err != nil && firstErr == nil {
				firstErr = err
			}
			c.queueSyncobj[ip][ring] = 0
			c.syncobjInUse[ip][ring] = false
		}
	}

	if c.fenceBO != nil {
		if err := c.fenceBO.Free(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.fenceBO = nil
	}

	if err := c.dev.CtxFree(c.id); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
