package drm

// DRM ioctl magic and command bases - must match drm.h / amdgpu_drm.h
const (
	DrmIoctlMagic  = 'd' // 0x64
	DrmCommandBase = 0x40
)

// Generic DRM ioctl command numbers
const (
	IoctlNrVersion        = 0x00
	IoctlNrGemClose       = 0x09
	IoctlNrSyncobjCreate  = 0xbf
	IoctlNrSyncobjDestroy = 0xc0
)

// amdgpu driver-private command numbers, offset by DrmCommandBase
const (
	IoctlNrAmdgpuGemCreate  = 0x00
	IoctlNrAmdgpuGemMmap    = 0x01
	IoctlNrAmdgpuCtx        = 0x02
	IoctlNrAmdgpuBoList     = 0x03
	IoctlNrAmdgpuCS         = 0x04
	IoctlNrAmdgpuInfo       = 0x05
	IoctlNrAmdgpuGemVA      = 0x08
	IoctlNrAmdgpuWaitCS     = 0x09
	IoctlNrAmdgpuWaitFences = 0x12
	IoctlNrAmdgpuVM         = 0x13
)

// HWIPType identifies a hardware IP block (engine class) on the GPU.
// Values must match AMDGPU_HW_IP_* from amdgpu_drm.h.
type HWIPType uint32

const (
	HWIPGfx     HWIPType = 0
	HWIPCompute HWIPType = 1
	HWIPDMA     HWIPType = 2
	HWIPUVD     HWIPType = 3
	HWIPVCE     HWIPType = 4
	HWIPUVDEnc  HWIPType = 5
	HWIPVCNDec  HWIPType = 6
	HWIPVCNEnc  HWIPType = 7
	HWIPVCNJpeg HWIPType = 8
	HWIPVPE     HWIPType = 9

	// NumHWIPTypes is AMDGPU_HW_IP_NUM.
	NumHWIPTypes = 10
)

var hwIPNames = map[HWIPType]string{
	HWIPGfx:     "gfx",
	HWIPCompute: "compute",
	HWIPDMA:     "sdma",
	HWIPUVD:     "uvd",
	HWIPVCE:     "vce",
	HWIPUVDEnc:  "uvd-enc",
	HWIPVCNDec:  "vcn-dec",
	HWIPVCNEnc:  "vcn-enc",
	HWIPVCNJpeg: "vcn-jpeg",
	HWIPVPE:     "vpe",
}

// String returns the short engine name.
func (t HWIPType) String() string {
	if name, ok := hwIPNames[t]; ok {
		return name
	}
	return "unknown"
}

// HasUserFence reports whether the kernel supports the generic user-fence
// mechanism for this IP type. The fixed-function media engines signal
// completion through their own paths and reject a fence chunk.
func (t HWIPType) HasUserFence() bool {
	switch t {
	case HWIPUVD, HWIPVCE, HWIPUVDEnc, HWIPVCNDec, HWIPVCNEnc, HWIPVCNJpeg:
		return false
	}
	return true
}

// Context operations for the AMDGPU_CTX ioctl
const (
	CtxOpAllocCtx = 1
	CtxOpFreeCtx  = 2
	CtxOpQuery    = 3
	CtxOpQuery2   = 4
)

// Kernel scheduling priorities accepted by context creation.
// Must match AMDGPU_CTX_PRIORITY_* (signed drm_sched values).
const (
	CtxPriorityUnset    int32 = -2048
	CtxPriorityVeryLow  int32 = -1023
	CtxPriorityLow      int32 = -512
	CtxPriorityNormal   int32 = 0
	CtxPriorityHigh     int32 = 512
	CtxPriorityVeryHigh int32 = 1023
)

// CS chunk identifiers
const (
	ChunkIDIB        = 0x01
	ChunkIDFence     = 0x02
	ChunkIDDeps      = 0x03
	ChunkIDBoHandles = 0x06
)

// GEM memory domains
const (
	GemDomainCPU  = 0x1
	GemDomainGTT  = 0x2
	GemDomainVRAM = 0x4
	GemDomainGDS  = 0x8
	GemDomainGWS  = 0x10
	GemDomainOA   = 0x20
)

// GEM creation flags
const (
	GemCreateCPUAccessRequired = 0x1
	GemCreateNoCPUAccess       = 0x2
	GemCreateCPUGttUSWC        = 0x4
	GemCreateVramCleared       = 0x8
)

// GEM VA operations and mapping flags
const (
	VAOpMap     = 1
	VAOpUnmap   = 2
	VAOpClear   = 3
	VAOpReplace = 4

	VAFlagReadable   = 0x1
	VAFlagWriteable  = 0x2
	VAFlagExecutable = 0x4
)

// VM operations for the AMDGPU_VM ioctl
const (
	VMOpReserveVMID   = 1
	VMOpUnreserveVMID = 2
)

// Info query identifiers for the AMDGPU_INFO ioctl
const (
	InfoQueryAccelWorking = 0x00
	InfoQueryHWIPInfo     = 0x02
	InfoQueryDevInfo      = 0x16
)

// TimeoutInfinite is AMDGPU_TIMEOUT_INFINITE for fence waits.
const TimeoutInfinite = ^uint64(0)

// BO-list sentinel: a bo_list_in chunk with these values asks the kernel to
// build an anonymous one-shot list from the inline handle array.
const (
	BoListUnlistedOperation = ^uint32(0)
	BoListUnlistedHandle    = ^uint32(0)
)

// amdgpu family identifiers reported by the device-info query.
// Must match AMDGPU_FAMILY_* from amdgpu_drm.h.
const (
	FamilySI     = 110
	FamilyCI     = 120
	FamilyKV     = 125
	FamilyVI     = 130
	FamilyCZ     = 135
	FamilyAI     = 141
	FamilyRV     = 142
	FamilyNV     = 143
	FamilyVGH    = 144
	FamilyGC1100 = 145
	FamilyYC     = 146
	FamilyGC1101 = 148
	FamilyGC1036 = 149
	FamilyGC1150 = 150
	FamilyGC1037 = 151
)

// IOCTL direction flags for the _IOC macro
const (
	IocNone  = 0
	IocWrite = 1
	IocRead  = 2
)

// IOCTL size/direction encoding constants
const (
	IocNrBits   = 8
	IocTypeBits = 8
	IocSizeBits = 14
	IocDirBits  = 2

	IocNrShift   = 0
	IocTypeShift = IocNrShift + IocNrBits
	IocSizeShift = IocTypeShift + IocTypeBits
	IocDirShift  = IocSizeShift + IocSizeBits
)

// Ioc creates an IOCTL command number
func Ioc(dir, iocType, nr, size int) uint32 {
	return uint32((dir << IocDirShift) |
		(iocType << IocTypeShift) |
		(nr << IocNrShift) |
		(size << IocSizeShift))
}

// IoW creates a write IOCTL (data flows from user to kernel)
func IoW(iocType, nr, size int) uint32 {
	return Ioc(IocWrite, iocType, nr, size)
}

// IoR creates a read IOCTL (data flows from kernel to user)
func IoR(iocType, nr, size int) uint32 {
	return Ioc(IocRead, iocType, nr, size)
}

// IoWR creates a read/write IOCTL
func IoWR(iocType, nr, size int) uint32 {
	return Ioc(IocWrite|IocRead, iocType, nr, size)
}

// Io creates an IOCTL with no data transfer
func Io(iocType, nr int) uint32 {
	return Ioc(IocNone, iocType, nr, 0)
}
