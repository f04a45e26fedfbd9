//go:build unit

package drm

import (
	"testing"
	"unsafe"
)

// The wire structs are shared with the kernel byte for byte; a size
// mismatch means a field or padding error somewhere.
func TestWireStructSizes(t *testing.T) {
	tests := []struct {
		name string
		got  int
		want int
	}{
		{"CSChunk", SizeOfCSChunk, 16},
		{"CSChunkIB", SizeOfCSChunkIB, 32},
		{"CSChunkFence", SizeOfCSChunkFence, 8},
		{"BoListIn", SizeOfBoListIn, 24},
		{"BoListEntry", SizeOfBoListEntry, 8},
		{"csIn", SizeOfCSArgs, 24},
		{"ctxIn", SizeOfCtxArgs, 16},
		{"Fence", SizeOfFence, 24},
		{"waitFencesIn", SizeOfWaitFences, 24},
		{"gemCreateIn", SizeOfGemCreate, 32},
		{"gemMmapIn", SizeOfGemMmap, 8},
		{"GemVA", SizeOfGemVA, 40},
		{"vmIn", SizeOfVMArgs, 8},
		{"syncobjArgs", SizeOfSyncobjArgs, 8},
		{"gemClose", SizeOfGemClose, 8},
		{"infoArgs", SizeOfInfoArgs, 32},
		{"DeviceInfo", SizeOfDeviceInfo, 176},
		{"HWIPInfo", SizeOfHWIPInfo, 32},
		{"drmVersion", SizeOfDrmVersion, 64},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("sizeof(%s) = %d, expected %d", tt.name, tt.got, tt.want)
		}
	}
}

func TestCSChunkIBLayout(t *testing.T) {
	var ib CSChunkIB
	base := uintptr(unsafe.Pointer(&ib))

	offsets := []struct {
		name string
		got  uintptr
		want uintptr
	}{
		{"Flags", uintptr(unsafe.Pointer(&ib.Flags)) - base, 4},
		{"VAStart", uintptr(unsafe.Pointer(&ib.VAStart)) - base, 8},
		{"IBBytes", uintptr(unsafe.Pointer(&ib.IBBytes)) - base, 16},
		{"IPType", uintptr(unsafe.Pointer(&ib.IPType)) - base, 20},
		{"IPInstance", uintptr(unsafe.Pointer(&ib.IPInstance)) - base, 24},
		{"Ring", uintptr(unsafe.Pointer(&ib.Ring)) - base, 28},
	}
	for _, o := range offsets {
		if o.got != o.want {
			t.Errorf("offsetof(CSChunkIB.%s) = %d, expected %d", o.name, o.got, o.want)
		}
	}
}

func TestFenceLayout(t *testing.T) {
	var f Fence
	base := uintptr(unsafe.Pointer(&f))

	if off := uintptr(unsafe.Pointer(&f.Ring)) - base; off != 12 {
		t.Errorf("offsetof(Fence.Ring) = %d, expected 12", off)
	}
	if off := uintptr(unsafe.Pointer(&f.SeqNo)) - base; off != 16 {
		t.Errorf("offsetof(Fence.SeqNo) = %d, expected 16", off)
	}
}

func TestDeviceInfoLayout(t *testing.T) {
	var info DeviceInfo
	base := uintptr(unsafe.Pointer(&info))

	// The VA window fields are the ones the memory manager depends on.
	if off := uintptr(unsafe.Pointer(&info.Family)) - base; off != 16 {
		t.Errorf("offsetof(DeviceInfo.Family) = %d, expected 16", off)
	}
	if off := uintptr(unsafe.Pointer(&info.VirtualAddressOffset)) - base; off != 144 {
		t.Errorf("offsetof(DeviceInfo.VirtualAddressOffset) = %d, expected 144", off)
	}
	if off := uintptr(unsafe.Pointer(&info.VirtualAddressMax)) - base; off != 152 {
		t.Errorf("offsetof(DeviceInfo.VirtualAddressMax) = %d, expected 152", off)
	}
}
