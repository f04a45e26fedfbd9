//go:build integration

package integration

import (
	"testing"

	"github.com/emergingrobotics/go-amdgpu/pkg/cs"
	"github.com/emergingrobotics/go-amdgpu/pkg/device"
	"github.com/emergingrobotics/go-amdgpu/pkg/drm"
	"github.com/emergingrobotics/go-amdgpu/pkg/ipblock"
	"github.com/emergingrobotics/go-amdgpu/pkg/memory"
	"github.com/emergingrobotics/go-amdgpu/testutil"
)

func setupDevice(t *testing.T) (*device.Device, *memory.Manager, *ipblock.Table) {
	t.Helper()

	dev := testutil.SkipIfNoDevice(t)
	mem := memory.NewManager(dev)
	blocks, err := ipblock.Setup(dev.Family())
	if err != nil {
		t.Skipf("device family not supported: %v", err)
	}
	return dev, mem, blocks
}

func requireEngine(t *testing.T, dev *device.Device, ip drm.HWIPType) {
	t.Helper()

	ok, err := dev.RingAvailable(ip, 0)
	if err != nil || !ok {
		t.Skipf("engine %s not available", ip)
	}
}

func TestBasicSubmission(t *testing.T) {
	dev, mem, _ := setupDevice(t)
	requireEngine(t, dev, drm.HWIPGfx)

	if err := cs.RunBasic(dev, mem, drm.HWIPGfx, 0); err != nil {
		t.Fatalf("basic submission failed: %v", err)
	}
}

func TestBasicSubmissionCompute(t *testing.T) {
	dev, mem, _ := setupDevice(t)
	requireEngine(t, dev, drm.HWIPCompute)

	if err := cs.RunBasic(dev, mem, drm.HWIPCompute, 0); err != nil {
		t.Fatalf("compute submission failed: %v", err)
	}
}

func TestWriteLinearAndVerify(t *testing.T) {
	dev, mem, blocks := setupDevice(t)
	requireEngine(t, dev, drm.HWIPGfx)

	block, err := blocks.Get(drm.HWIPGfx)
	if err != nil {
		t.Fatal(err)
	}

	ctx, err := cs.CreateContext(dev, mem, cs.PriorityMedium)
	if err != nil {
		t.Fatalf("context creation failed: %v", err)
	}
	defer ctx.Destroy()

	const writeLength = 1024
	data, err := mem.Alloc(writeLength*4, 4096, drm.GemDomainGTT, 0)
	if err != nil {
		t.Fatalf("data allocation failed: %v", err)
	}
	packets, err := mem.Alloc(4096+writeLength*4, 4096, drm.GemDomainGTT, 0)
	if err != nil {
		data.Free()
		t.Fatalf("packet allocation failed: %v", err)
	}
	s := ipblock.NewStream(data, packets, writeLength)
	defer func() {
		data.Free()
		packets.Free()
	}()

	if err := block.Funcs.WriteLinear(s); err != nil {
		t.Fatalf("packet build failed: %v", err)
	}

	req := &cs.Request{
		IPType: drm.HWIPGfx,
		IBs: []cs.IB{
			{Address: s.PacketAddress(), SizeDW: s.PacketDWs, IPType: drm.HWIPGfx},
		},
		Handles: []drm.BoListEntry{
			{BoHandle: packets.Handle()},
			{BoHandle: data.Handle()},
		},
	}

	engine := cs.NewEngine(dev.File())
	result, err := engine.Submit(req, ctx)
	if result != cs.ResultOK {
		t.Fatalf("submission failed (%s): %v", result, err)
	}
	if err := ctx.WaitForFence(drm.HWIPGfx, 0, req.SeqNo); err != nil {
		t.Fatalf("fence wait failed: %v", err)
	}

	if err := block.Funcs.Compare(s, 1); err != nil {
		t.Errorf("output verification failed: %v", err)
	}
}

func TestGangSubmission(t *testing.T) {
	dev, mem, blocks := setupDevice(t)
	requireEngine(t, dev, drm.HWIPGfx)
	requireEngine(t, dev, drm.HWIPCompute)

	gang := cs.NewGang(dev, mem, blocks)
	if err := gang.Run(cs.GangOptions{}); err != nil {
		t.Fatalf("gang submission failed: %v", err)
	}
}

func TestGangSubmissionWithVMID(t *testing.T) {
	dev, mem, blocks := setupDevice(t)
	requireEngine(t, dev, drm.HWIPGfx)
	requireEngine(t, dev, drm.HWIPCompute)

	gang := cs.NewGang(dev, mem, blocks)
	if err := gang.Run(cs.GangOptions{ReserveVMID: true}); err != nil {
		t.Fatalf("gang submission with vmid failed: %v", err)
	}
}

func TestSequenceNumbersIncrease(t *testing.T) {
	dev, mem, _ := setupDevice(t)
	requireEngine(t, dev, drm.HWIPGfx)

	ctx, err := cs.CreateContext(dev, mem, cs.PriorityMedium)
	if err != nil {
		t.Fatalf("context creation failed: %v", err)
	}
	defer ctx.Destroy()

	packets, err := mem.Alloc(4096, 4096, drm.GemDomainGTT, 0)
	if err != nil {
		t.Fatalf("packet allocation failed: %v", err)
	}
	defer packets.Free()
	clear(packets.Bytes())
	s := &ipblock.Stream{Packets: packets, PM4: packets.Words()}
	if err := ipblock.WriteNop(s, 16); err != nil {
		t.Fatalf("packet build failed: %v", err)
	}

	engine := cs.NewEngine(dev.File())
	var last uint64
	for i := 0; i < 4; i++ {
		req := &cs.Request{
			IPType: drm.HWIPGfx,
			IBs: []cs.IB{
				{Address: s.PacketAddress(), SizeDW: s.PacketDWs, IPType: drm.HWIPGfx},
			},
			Handles: []drm.BoListEntry{{BoHandle: packets.Handle()}},
		}
		result, err := engine.Submit(req, ctx)
		if result != cs.ResultOK {
			t.Fatalf("submission %d failed (%s): %v", i, result, err)
		}
		if req.SeqNo <= last {
			t.Fatalf("submission %d: seq %d not above previous %d", i, req.SeqNo, last)
		}
		last = req.SeqNo
	}
	if err := ctx.WaitForFence(drm.HWIPGfx, 0, last); err != nil {
		t.Fatalf("fence wait failed: %v", err)
	}
}

func TestDeviceInfoQueries(t *testing.T) {
	dev := testutil.SkipIfNoDevice(t)

	info := dev.Info()
	if info.Family == 0 {
		t.Error("device reports no family")
	}
	if info.VirtualAddressMax <= info.VirtualAddressOffset {
		t.Errorf("bad VA window: 0x%x..0x%x", info.VirtualAddressOffset, info.VirtualAddressMax)
	}

	caps := dev.Capabilities()
	if !caps[drm.HWIPGfx] && !caps[drm.HWIPCompute] && !caps[drm.HWIPDMA] {
		t.Error("device exposes no usable engine")
	}
}
