package cs

import (
	"unsafe"

	"github.com/emergingrobotics/go-amdgpu/pkg/drm"
)

// chunkSet is the assembled ioctl payload for one submission. The chunk
// array carries user pointers into the payload fields, so the whole set
// must be kept alive until the submission ioctl returns.
type chunkSet struct {
	chunks []drm.CSChunk

	ibData    []drm.CSChunkIB
	fenceData *drm.CSChunkFence
	boListIn  drm.BoListIn
	handles   []drm.BoListEntry
}

// buildChunks translates a request into the kernel chunk array: one IB
// chunk per requested IB in caller order, a fence chunk when the target
// engine supports user fences, and a BO-list chunk. fenceHandle is the GEM
// handle of the context's fence buffer.
func buildChunks(req *Request, fenceHandle uint32) (*chunkSet, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	hasUserFence := req.IPType.HasUserFence()
	numChunks := len(req.IBs) + 1 // bo list
	if hasUserFence {
		numChunks++
	}

	set := &chunkSet{
		chunks:  make([]drm.CSChunk, 0, numChunks),
		ibData:  make([]drm.CSChunkIB, len(req.IBs)),
		handles: req.Handles,
	}

	for i := range req.IBs {
		ib := &req.IBs[i]
		set.ibData[i] = drm.CSChunkIB{
			VAStart:    ib.Address,
			IBBytes:    ib.SizeDW * 4,
			IPType:     uint32(ib.IPType),
			Flags:      ib.Flags,
			IPInstance: req.IPInstance,
			Ring:       req.Ring,
		}
		set.chunks = append(set.chunks, drm.CSChunk{
			ChunkID:   drm.ChunkIDIB,
			LengthDW:  uint32(drm.SizeOfCSChunkIB / 4),
			ChunkData: uint64(uintptr(unsafe.Pointer(&set.ibData[i]))),
		})
	}

	if hasUserFence {
		set.fenceData = &drm.CSChunkFence{
			Handle: fenceHandle,
			// slot offset in qwords, wire offset in bytes
			Offset: FenceOffset(req.IPType, req.Ring) * 8,
		}
		set.chunks = append(set.chunks, drm.CSChunk{
			ChunkID:   drm.ChunkIDFence,
			LengthDW:  uint32(drm.SizeOfCSChunkFence / 4),
			ChunkData: uint64(uintptr(unsafe.Pointer(set.fenceData))),
		})
	}

	set.boListIn = drm.BoListIn{
		Operation:  drm.BoListUnlistedOperation,
		ListHandle: drm.BoListUnlistedHandle,
		BoNumber:   uint32(len(req.Handles)),
		BoInfoSize: uint32(drm.SizeOfBoListEntry),
	}
	if len(req.Handles) > 0 {
		set.boListIn.BoInfoPtr = uint64(uintptr(unsafe.Pointer(&req.Handles[0])))
	}
	set.chunks = append(set.chunks, drm.CSChunk{
		ChunkID:   drm.ChunkIDBoHandles,
		LengthDW:  uint32(drm.SizeOfBoListIn / 4),
		ChunkData: uint64(uintptr(unsafe.Pointer(&set.boListIn))),
	})

	return set, nil
}
