package cs

import (
	"fmt"

	"github.com/emergingrobotics/go-amdgpu/pkg/drm"
)

// GangSize is the maximum number of IBs one request may carry
const GangSize = 4

// IB describes one indirect buffer within a submission request
type IB struct {
	// Address is the device virtual address of the packet stream
	Address uint64
	// SizeDW is the stream length in dwords; must be non-zero
	SizeDW uint32
	// IPType is the engine executing this IB
	IPType drm.HWIPType
	// Flags are raw chunk flags passed through to the kernel
	Flags uint32
}

// Request is one command submission: an ordered list of IBs executed as a
// single kernel-scheduled unit, the BO handles that must be resident for
// it, and the target queue. SeqNo is filled in on successful submission.
type Request struct {
	IPType     drm.HWIPType
	IPInstance uint32
	Ring       uint32

	Handles []drm.BoListEntry
	IBs     []IB

	SeqNo uint64
}

// validate enforces the request invariants before any kernel call
func (r *Request) validate() error {
	if len(r.IBs) == 0 || len(r.IBs) > GangSize {
		return fmt.Errorf("request carries %d IBs, want 1..%d", len(r.IBs), GangSize)
	}
	for i := range r.IBs {
		if r.IBs[i].SizeDW == 0 {
			return fmt.Errorf("IB %d has zero size", i)
		}
	}
	// Relative IB order is execution order within the gang; the last IB
	// must run on the queue the request targets.
	if last := r.IBs[len(r.IBs)-1].IPType; last != r.IPType {
		return fmt.Errorf("last IB targets %s, request targets %s", last, r.IPType)
	}
	if r.Ring >= MaxRingsPerType {
		return fmt.Errorf("ring %d out of range", r.Ring)
	}
	return nil
}
