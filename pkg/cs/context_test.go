//go:build unit

package cs

import (
	"testing"

	"github.com/emergingrobotics/go-amdgpu/pkg/drm"
)

// fakeCtxOps records kernel calls made by the context manager
type fakeCtxOps struct {
	nextHandle uint32
	created    []uint32
	destroyed  []uint32
	freedCtx   []uint32
	waited     []drm.Fence
}

func (f *fakeCtxOps) CtxFree(ctxID uint32) error {
	f.freedCtx = append(f.freedCtx, ctxID)
	return nil
}

func (f *fakeCtxOps) SyncobjCreate() (uint32, error) {
	f.nextHandle++
	f.created = append(f.created, f.nextHandle)
	return f.nextHandle, nil
}

func (f *fakeCtxOps) SyncobjDestroy(handle uint32) error {
	f.destroyed = append(f.destroyed, handle)
	return nil
}

func (f *fakeCtxOps) WaitFences(fences []drm.Fence, waitAll bool, timeoutNS uint64) (bool, uint32, error) {
	f.waited = append(f.waited, fences...)
	return false, 0, nil
}

func TestKernelPriorityMapping(t *testing.T) {
	tests := []struct {
		p    Priority
		want int32
	}{
		{PriorityLow, drm.CtxPriorityLow},
		{PriorityMedium, drm.CtxPriorityNormal},
		{PriorityHigh, drm.CtxPriorityHigh},
		{PriorityRealtime, drm.CtxPriorityVeryHigh},
		{Priority(99), drm.CtxPriorityNormal},
	}
	for _, tt := range tests {
		if got := tt.p.kernelPriority(); got != tt.want {
			t.Errorf("priority %d maps to %d, expected %d", tt.p, got, tt.want)
		}
	}
}

func TestFenceOffsetsDistinct(t *testing.T) {
	seen := make(map[uint32]string)
	for ip := drm.HWIPType(0); ip < numFenceIPTypes; ip++ {
		for ring := uint32(0); ring < MaxRingsPerType; ring++ {
			off := FenceOffset(ip, ring)
			key := ip.String()
			if prev, ok := seen[off]; ok {
				t.Errorf("offset %d shared by %s ring %d and %s", off, ip, ring, prev)
			}
			seen[off] = key

			// every slot's 4 qwords must fit inside the fence buffer
			if (off+fenceSlotQwords)*8 > fenceBufferSize {
				t.Errorf("slot for %s ring %d ends at byte %d, past buffer size %d",
					ip, ring, (off+fenceSlotQwords)*8, fenceBufferSize)
			}
		}
	}
}

func TestFenceOffsetLayout(t *testing.T) {
	if FenceOffset(drm.HWIPGfx, 0) != 0 {
		t.Error("gfx ring 0 should use the first slot")
	}
	if got := FenceOffset(drm.HWIPGfx, 1); got != fenceSlotQwords {
		t.Errorf("gfx ring 1 offset = %d, expected %d", got, fenceSlotQwords)
	}
	if got := FenceOffset(drm.HWIPCompute, 0); got != MaxRingsPerType*fenceSlotQwords {
		t.Errorf("compute ring 0 offset = %d, expected %d", got, MaxRingsPerType*fenceSlotQwords)
	}
}

func TestQueueSyncobjCaching(t *testing.T) {
	fake := &fakeCtxOps{}
	ctx := &Context{dev: fake, id: 7}

	h1, err := ctx.QueueSyncobj(drm.HWIPGfx, 0)
	if err != nil {
		t.Fatalf("first QueueSyncobj failed: %v", err)
	}
	h2, err := ctx.QueueSyncobj(drm.HWIPGfx, 0)
	if err != nil {
		t.Fatalf("second QueueSyncobj failed: %v", err)
	}
	if h1 != h2 {
		t.Errorf("handles differ: %d vs %d", h1, h2)
	}
	if len(fake.created) != 1 {
		t.Errorf("created %d sync objects, expected 1", len(fake.created))
	}

	h3, err := ctx.QueueSyncobj(drm.HWIPCompute, 3)
	if err != nil {
		t.Fatalf("QueueSyncobj for another queue failed: %v", err)
	}
	if h3 == h1 {
		t.Error("distinct queues share a sync object")
	}
}

func TestQueueSyncobjOutOfRange(t *testing.T) {
	ctx := &Context{dev: &fakeCtxOps{}}
	if _, err := ctx.QueueSyncobj(drm.HWIPGfx, MaxRingsPerType); err == nil {
		t.Error("out-of-range ring should fail")
	}
	if _, err := ctx.QueueSyncobj(drm.HWIPType(numFenceIPTypes), 0); err == nil {
		t.Error("out-of-range ip type should fail")
	}
}

func TestDestroyReleasesOnlyCreatedSyncobjs(t *testing.T) {
	fake := &fakeCtxOps{}
	ctx := &Context{dev: fake, id: 7}

	if _, err := ctx.QueueSyncobj(drm.HWIPGfx, 0); err != nil {
		t.Fatalf("QueueSyncobj failed: %v", err)
	}
	if _, err := ctx.QueueSyncobj(drm.HWIPDMA, 2); err != nil {
		t.Fatalf("QueueSyncobj failed: %v", err)
	}

	if err := ctx.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if len(fake.destroyed) != 2 {
		t.Errorf("destroyed %d sync objects, expected 2", len(fake.destroyed))
	}
	if len(fake.freedCtx) != 1 || fake.freedCtx[0] != 7 {
		t.Errorf("context free calls = %v, expected [7]", fake.freedCtx)
	}
}

func TestDestroyWithoutSyncobjs(t *testing.T) {
	fake := &fakeCtxOps{}
	ctx := &Context{dev: fake, id: 3}

	if err := ctx.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if len(fake.destroyed) != 0 {
		t.Errorf("destroyed %d sync objects, expected 0", len(fake.destroyed))
	}
}

func TestWaitForFenceArguments(t *testing.T) {
	fake := &fakeCtxOps{}
	ctx := &Context{dev: fake, id: 9}

	if err := ctx.WaitForFence(drm.HWIPCompute, 2, 41); err != nil {
		t.Fatalf("WaitForFence failed: %v", err)
	}
	if len(fake.waited) != 1 {
		t.Fatalf("waited on %d fences, expected 1", len(fake.waited))
	}
	f := fake.waited[0]
	if f.CtxID != 9 || f.IPType != uint32(drm.HWIPCompute) || f.Ring != 2 || f.SeqNo != 41 {
		t.Errorf("unexpected fence %+v", f)
	}
}

func TestLastSeqNoTracking(t *testing.T) {
	ctx := &Context{dev: &fakeCtxOps{}}
	if got := ctx.LastSeqNo(drm.HWIPGfx, 0); got != 0 {
		t.Errorf("initial seq no = %d, expected 0", got)
	}
	ctx.noteSubmission(drm.HWIPGfx, 0, 17)
	if got := ctx.LastSeqNo(drm.HWIPGfx, 0); got != 17 {
		t.Errorf("seq no = %d, expected 17", got)
	}
	if got := ctx.LastSeqNo(drm.HWIPGfx, 1); got != 0 {
		t.Errorf("other ring seq no = %d, expected 0", got)
	}
}
