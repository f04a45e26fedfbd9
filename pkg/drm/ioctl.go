package drm

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// IOCTL command codes (calculated from type and size)
var (
	ioctlVersion        = IoWR(DrmIoctlMagic, IoctlNrVersion, SizeOfDrmVersion)
	ioctlGemClose       = IoW(DrmIoctlMagic, IoctlNrGemClose, SizeOfGemClose)
	ioctlSyncobjCreate  = IoWR(DrmIoctlMagic, IoctlNrSyncobjCreate, SizeOfSyncobjArgs)
	ioctlSyncobjDestroy = IoWR(DrmIoctlMagic, IoctlNrSyncobjDestroy, SizeOfSyncobjArgs)

	ioctlAmdgpuGemCreate  = IoWR(DrmIoctlMagic, DrmCommandBase+IoctlNrAmdgpuGemCreate, SizeOfGemCreate)
	ioctlAmdgpuGemMmap    = IoWR(DrmIoctlMagic, DrmCommandBase+IoctlNrAmdgpuGemMmap, SizeOfGemMmap)
	ioctlAmdgpuCtx        = IoWR(DrmIoctlMagic, DrmCommandBase+IoctlNrAmdgpuCtx, SizeOfCtxArgs)
	ioctlAmdgpuCS         = IoWR(DrmIoctlMagic, DrmCommandBase+IoctlNrAmdgpuCS, SizeOfCSArgs)
	ioctlAmdgpuInfo       = IoW(DrmIoctlMagic, DrmCommandBase+IoctlNrAmdgpuInfo, SizeOfInfoArgs)
	ioctlAmdgpuGemVA      = IoW(DrmIoctlMagic, DrmCommandBase+IoctlNrAmdgpuGemVA, SizeOfGemVA)
	ioctlAmdgpuWaitFences = IoWR(DrmIoctlMagic, DrmCommandBase+IoctlNrAmdgpuWaitFences, SizeOfWaitFences)
	ioctlAmdgpuVM         = IoWR(DrmIoctlMagic, DrmCommandBase+IoctlNrAmdgpuVM, SizeOfVMArgs)
)

// Ioctl code accessors for the debug tooling
func GetIoctlCS() uint32         { return ioctlAmdgpuCS }
func GetIoctlCtx() uint32        { return ioctlAmdgpuCtx }
func GetIoctlWaitFences() uint32 { return ioctlAmdgpuWaitFences }
func GetIoctlGemCreate() uint32  { return ioctlAmdgpuGemCreate }
func GetIoctlInfo() uint32       { return ioctlAmdgpuInfo }

// CtxCreate creates a kernel scheduling context with the given priority
// (one of the CtxPriority* values) and returns its handle.
func (d *DeviceFile) CtxCreate(priority int32) (uint32, error) {
	args := ctxIn{
		Op:       CtxOpAllocCtx,
		Priority: priority,
	}
	if err := d.ioctl(ioctlAmdgpuCtx, unsafe.Pointer(&args)); err != nil {
		return 0, err
	}
	// out.alloc.ctx_id overlays in.op
	return args.Op, nil
}

// CtxFree frees a kernel scheduling context
func (d *DeviceFile) CtxFree(ctxID uint32) error {
	args := ctxIn{
		Op:    CtxOpFreeCtx,
		CtxID: ctxID,
	}
	return d.ioctl(ioctlAmdgpuCtx, unsafe.Pointer(&args))
}

// SubmitRaw issues the raw command-submission ioctl with the given chunk
// array and returns the kernel-assigned sequence number. Every chunk's
// ChunkData pointer must stay valid for the duration of the call; the
// caller keeps the pointed-to payloads alive.
func (d *DeviceFile) SubmitRaw(ctxID uint32, chunks []CSChunk) (uint64, error) {
	// The kernel takes an array of user pointers to chunks, not the
	// chunk array itself.
	ptrs := make([]uint64, len(chunks))
	for i := range chunks {
		ptrs[i] = uint64(uintptr(unsafe.Pointer(&chunks[i])))
	}

	args := csIn{
		CtxID:     ctxID,
		NumChunks: uint32(len(chunks)),
		Chunks:    uint64(uintptr(unsafe.Pointer(&ptrs[0]))),
	}
	err := d.ioctl(ioctlAmdgpuCS, unsafe.Pointer(&args))
	runtime.KeepAlive(ptrs)
	runtime.KeepAlive(chunks)
	if err != nil {
		return 0, err
	}
	// out.handle (the sequence number) overlays the front of the union
	return *(*uint64)(unsafe.Pointer(&args)), nil
}

// WaitFences blocks until the given fences signal (all of them when waitAll
// is set, any otherwise) or timeoutNS expires. TimeoutInfinite blocks until
// completion. Returns whether the wait expired and the index of the first
// signaled fence.
func (d *DeviceFile) WaitFences(fences []Fence, waitAll bool, timeoutNS uint64) (bool, uint32, error) {
	if len(fences) == 0 {
		return false, 0, NewError(StatusInvalidArgument, "waiting for fences: empty fence list")
	}
	args := waitFencesIn{
		Fences:     uint64(uintptr(unsafe.Pointer(&fences[0]))),
		FenceCount: uint32(len(fences)),
		TimeoutNS:  timeoutNS,
	}
	if waitAll {
		args.WaitAll = 1
	}
	err := d.ioctl(ioctlAmdgpuWaitFences, unsafe.Pointer(&args))
	runtime.KeepAlive(fences)
	if err != nil {
		return false, 0, err
	}
	// out.{status, first_signaled} overlay the front of the union
	status := *(*uint32)(unsafe.Pointer(&args))
	first := *(*uint32)(unsafe.Pointer(uintptr(unsafe.Pointer(&args)) + 4))
	return status != 0, first, nil
}

// SyncobjCreate creates a kernel sync object and returns its handle
func (d *DeviceFile) SyncobjCreate() (uint32, error) {
	var args syncobjArgs
	if err := d.ioctl(ioctlSyncobjCreate, unsafe.Pointer(&args)); err != nil {
		return 0, err
	}
	return args.Handle, nil
}

// SyncobjDestroy destroys a kernel sync object
func (d *DeviceFile) SyncobjDestroy(handle uint32) error {
	args := syncobjArgs{Handle: handle}
	return d.ioctl(ioctlSyncobjDestroy, unsafe.Pointer(&args))
}

// GemCreate allocates a buffer object in the given memory domains and
// returns its GEM handle. On a render node the GEM handle doubles as the
// KMS handle referenced by fence chunks and BO lists.
func (d *DeviceFile) GemCreate(size, alignment, domains, domainFlags uint64) (uint32, error) {
	args := gemCreateIn{
		BoSize:      size,
		Alignment:   alignment,
		Domains:     domains,
		DomainFlags: domainFlags,
	}
	if err := d.ioctl(ioctlAmdgpuGemCreate, unsafe.Pointer(&args)); err != nil {
		return 0, err
	}
	// out.handle overlays the front of the union
	return *(*uint32)(unsafe.Pointer(&args)), nil
}

// GemMmapOffset returns the fake mmap offset for a buffer object, to be
// passed to mmap(2) on the device fd.
func (d *DeviceFile) GemMmapOffset(handle uint32) (uint64, error) {
	args := gemMmapIn{Handle: handle}
	if err := d.ioctl(ioctlAmdgpuGemMmap, unsafe.Pointer(&args)); err != nil {
		return 0, err
	}
	return *(*uint64)(unsafe.Pointer(&args)), nil
}

// Mmap maps a buffer object into the process address space
func (d *DeviceFile) Mmap(offset uint64, size int) ([]byte, error) {
	data, err := unix.Mmap(d.fd, int64(offset), size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		errno, ok := err.(unix.Errno)
		if ok {
			return nil, StatusFromErrno(errno, "mmap")
		}
		return nil, NewErrorWithCause(StatusIoctlFailed, "mmap", err)
	}
	return data, nil
}

// Munmap unmaps a buffer previously mapped with Mmap
func (d *DeviceFile) Munmap(data []byte) error {
	if err := unix.Munmap(data); err != nil {
		return NewErrorWithCause(StatusIoctlFailed, "munmap", err)
	}
	return nil
}

// GemVAOp maps or unmaps a buffer object in the GPU virtual address space
func (d *DeviceFile) GemVAOp(handle, op, flags uint32, vaAddress, offsetInBo, mapSize uint64) error {
	args := GemVA{
		Handle:     handle,
		Operation:  op,
		Flags:      flags,
		VAAddress:  vaAddress,
		OffsetInBo: offsetInBo,
		MapSize:    mapSize,
	}
	return d.ioctl(ioctlAmdgpuGemVA, unsafe.Pointer(&args))
}

// GemClose releases a GEM handle
func (d *DeviceFile) GemClose(handle uint32) error {
	args := gemClose{Handle: handle}
	return d.ioctl(ioctlGemClose, unsafe.Pointer(&args))
}

// VMReserveVMID reserves a dedicated virtual-memory ID for this fd
func (d *DeviceFile) VMReserveVMID(flags uint32) error {
	args := vmIn{Op: VMOpReserveVMID, Flags: flags}
	return d.ioctl(ioctlAmdgpuVM, unsafe.Pointer(&args))
}

// VMUnreserveVMID releases a previously reserved virtual-memory ID
func (d *DeviceFile) VMUnreserveVMID(flags uint32) error {
	args := vmIn{Op: VMOpUnreserveVMID, Flags: flags}
	return d.ioctl(ioctlAmdgpuVM, unsafe.Pointer(&args))
}

// infoQuery issues the AMDGPU_INFO ioctl, filling out with up to size bytes
func (d *DeviceFile) infoQuery(query uint32, queryData [4]uint32, out unsafe.Pointer, size int) error {
	args := infoArgs{
		ReturnPointer: uint64(uintptr(out)),
		ReturnSize:    uint32(size),
		Query:         query,
		QueryData:     queryData,
	}
	return d.ioctl(ioctlAmdgpuInfo, unsafe.Pointer(&args))
}

// QueryDeviceInfo queries static device information (family, VA range, ...)
func (d *DeviceFile) QueryDeviceInfo() (*DeviceInfo, error) {
	var info DeviceInfo
	err := d.infoQuery(InfoQueryDevInfo, [4]uint32{}, unsafe.Pointer(&info), SizeOfDeviceInfo)
	runtime.KeepAlive(&info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// QueryHWIPInfo queries capabilities of one hardware IP block instance
func (d *DeviceFile) QueryHWIPInfo(ipType HWIPType, instance uint32) (*HWIPInfo, error) {
	var info HWIPInfo
	err := d.infoQuery(InfoQueryHWIPInfo, [4]uint32{uint32(ipType), instance, 0, 0},
		unsafe.Pointer(&info), SizeOfHWIPInfo)
	runtime.KeepAlive(&info)
	if err != nil {
		return nil, err
	}
	return &info, nil
}
