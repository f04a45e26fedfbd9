package drm

import "unsafe"

// CSChunk matches struct drm_amdgpu_cs_chunk. ChunkData is a user pointer
// to the chunk payload; the kernel dispatches on ChunkID, not on position.
type CSChunk struct {
	ChunkID   uint32
	LengthDW  uint32
	ChunkData uint64
}

// CSChunkIB matches struct drm_amdgpu_cs_chunk_ib
type CSChunkIB struct {
	Pad        uint32
	Flags      uint32
	VAStart    uint64
	IBBytes    uint32
	IPType     uint32
	IPInstance uint32
	Ring       uint32
}

// CSChunkFence matches struct drm_amdgpu_cs_chunk_fence.
// Offset is in bytes from the start of the fence buffer object.
type CSChunkFence struct {
	Handle uint32
	Offset uint32
}

// BoListIn matches struct drm_amdgpu_bo_list_in
type BoListIn struct {
	Operation  uint32
	ListHandle uint32
	BoNumber   uint32
	BoInfoSize uint32
	BoInfoPtr  uint64
}

// BoListEntry matches struct drm_amdgpu_bo_list_entry
type BoListEntry struct {
	BoHandle   uint32
	BoPriority uint32
}

// csIn matches struct drm_amdgpu_cs_in. The kernel overlays the output
// (union drm_amdgpu_cs, out.handle = sequence number) on the same memory.
type csIn struct {
	CtxID        uint32
	BoListHandle uint32
	NumChunks    uint32
	Flags        uint32
	Chunks       uint64 // pointer to an array of uint64 chunk pointers
}

// ctxIn matches struct drm_amdgpu_ctx_in. The alloc output (ctx_id) is
// overlaid on the front of the union by the kernel.
type ctxIn struct {
	Op       uint32
	Flags    uint32
	CtxID    uint32
	Priority int32
}

// Fence matches struct drm_amdgpu_fence
type Fence struct {
	CtxID      uint32
	IPType     uint32
	IPInstance uint32
	Ring       uint32
	SeqNo      uint64
}

// waitFencesIn matches struct drm_amdgpu_wait_fences_in; the out struct
// (status, first_signaled) is overlaid on the front of the union.
type waitFencesIn struct {
	Fences     uint64 // pointer to a Fence array
	FenceCount uint32
	WaitAll    uint32
	TimeoutNS  uint64
}

// gemCreateIn matches struct drm_amdgpu_gem_create_in; the out struct
// (handle) is overlaid on the front of the union.
type gemCreateIn struct {
	BoSize      uint64
	Alignment   uint64
	Domains     uint64
	DomainFlags uint64
}

// gemMmapIn matches struct drm_amdgpu_gem_mmap in/out union: the input
// handle is replaced by the 64-bit fake mmap offset on return.
type gemMmapIn struct {
	Handle uint32
	Pad    uint32
}

// GemVA matches struct drm_amdgpu_gem_va
type GemVA struct {
	Handle     uint32
	Pad        uint32
	Operation  uint32
	Flags      uint32
	VAAddress  uint64
	OffsetInBo uint64
	MapSize    uint64
}

// vmIn matches struct drm_amdgpu_vm_in
type vmIn struct {
	Op    uint32
	Flags uint32
}

// syncobjArgs matches struct drm_syncobj_create / drm_syncobj_destroy
type syncobjArgs struct {
	Handle uint32
	Flags  uint32
}

// gemClose matches struct drm_gem_close
type gemClose struct {
	Handle uint32
	Pad    uint32
}

// infoArgs matches struct drm_amdgpu_info. QueryData covers the input
// union (query_hw_ip, read_mmr_reg, ...); unused words stay zero.
type infoArgs struct {
	ReturnPointer uint64
	ReturnSize    uint32
	Query         uint32
	QueryData     [4]uint32
}

// DeviceInfo is a prefix of struct drm_amdgpu_info_device. The kernel
// copies min(return_size, sizeof) bytes, so trailing fields past
// CeRamSize are omitted.
type DeviceInfo struct {
	DeviceID                 uint32
	ChipRev                  uint32
	ExternalRev              uint32
	PciRev                   uint32
	Family                   uint32
	NumShaderEngines         uint32
	NumShaderArraysPerEngine uint32
	GpuCounterFreq           uint32
	MaxEngineClock           uint64
	MaxMemoryClock           uint64
	CuActiveNumber           uint32
	CuAoMask                 uint32
	CuBitmap                 [4][4]uint32
	EnabledRbPipesMask       uint32
	NumRbPipes               uint32
	NumHwGfxContexts         uint32
	PcieGen                  uint32
	IDsFlags                 uint64
	VirtualAddressOffset     uint64
	VirtualAddressMax        uint64
	VirtualAddressAlignment  uint32
	PteFragmentSize          uint32
	GartPageSize             uint32
	CeRamSize                uint32
}

// HWIPInfo matches struct drm_amdgpu_info_hw_ip
type HWIPInfo struct {
	HwIPVersionMajor   uint32
	HwIPVersionMinor   uint32
	CapabilitiesFlags  uint64
	IBStartAlignment   uint32
	IBSizeAlignment    uint32
	AvailableRings     uint32
	IPDiscoveryVersion uint32
}

// drmVersion matches struct drm_version on 64-bit targets
type drmVersion struct {
	Major   int32
	Minor   int32
	Patch   int32
	Pad     uint32
	NameLen uint64
	Name    uint64
	DateLen uint64
	Date    uint64
	DescLen uint64
	Desc    uint64
}

// Size constants for struct validation and ioctl encoding
const (
	SizeOfCSChunk      = int(unsafe.Sizeof(CSChunk{}))
	SizeOfCSChunkIB    = int(unsafe.Sizeof(CSChunkIB{}))
	SizeOfCSChunkFence = int(unsafe.Sizeof(CSChunkFence{}))
	SizeOfBoListIn     = int(unsafe.Sizeof(BoListIn{}))
	SizeOfBoListEntry  = int(unsafe.Sizeof(BoListEntry{}))
	SizeOfCSArgs       = int(unsafe.Sizeof(csIn{}))
	SizeOfCtxArgs      = int(unsafe.Sizeof(ctxIn{}))
	SizeOfFence        = int(unsafe.Sizeof(Fence{}))
	SizeOfWaitFences   = int(unsafe.Sizeof(waitFencesIn{}))
	SizeOfGemCreate    = int(unsafe.Sizeof(gemCreateIn{}))
	SizeOfGemMmap      = int(unsafe.Sizeof(gemMmapIn{}))
	SizeOfGemVA        = int(unsafe.Sizeof(GemVA{}))
	SizeOfVMArgs       = int(unsafe.Sizeof(vmIn{}))
	SizeOfSyncobjArgs  = int(unsafe.Sizeof(syncobjArgs{}))
	SizeOfGemClose     = int(unsafe.Sizeof(gemClose{}))
	SizeOfInfoArgs     = int(unsafe.Sizeof(infoArgs{}))
	SizeOfDeviceInfo   = int(unsafe.Sizeof(DeviceInfo{}))
	SizeOfHWIPInfo     = int(unsafe.Sizeof(HWIPInfo{}))
	SizeOfDrmVersion   = int(unsafe.Sizeof(drmVersion{}))
)
