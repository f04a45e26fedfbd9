//go:build benchmark

package integration

import (
	"testing"

	"github.com/emergingrobotics/go-amdgpu/pkg/cs"
	"github.com/emergingrobotics/go-amdgpu/pkg/device"
	"github.com/emergingrobotics/go-amdgpu/pkg/drm"
	"github.com/emergingrobotics/go-amdgpu/pkg/ipblock"
	"github.com/emergingrobotics/go-amdgpu/pkg/memory"
)

// BenchmarkPM4Encoding measures packet stream construction
func BenchmarkPM4Encoding(b *testing.B) {
	table, err := ipblock.Setup(drm.FamilyNV)
	if err != nil {
		b.Fatal(err)
	}
	gfx, err := table.Get(drm.HWIPGfx)
	if err != nil {
		b.Fatal(err)
	}

	s := &ipblock.Stream{
		PM4:         make([]uint32, 8192),
		DataWords:   make([]uint32, 4096),
		TargetAddr:  0x100000,
		WriteLength: 4096,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.PacketDWs = 0
		if err := gfx.Funcs.WriteLinear(s); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSubmissionLatency measures the full kernel submission round trip
func BenchmarkSubmissionLatency(b *testing.B) {
	dev, err := device.OpenFirst()
	if err != nil {
		b.Skipf("no amdgpu device available: %v", err)
	}
	defer dev.Close()

	mem := memory.NewManager(dev)
	ctx, err := cs.CreateContext(dev, mem, cs.PriorityMedium)
	if err != nil {
		b.Fatal(err)
	}
	defer ctx.Destroy()

	packets, err := mem.Alloc(4096, 4096, drm.GemDomainGTT, 0)
	if err != nil {
		b.Fatal(err)
	}
	defer packets.Free()
	clear(packets.Bytes())
	s := &ipblock.Stream{Packets: packets, PM4: packets.Words()}
	if err := ipblock.WriteNop(s, 16); err != nil {
		b.Fatal(err)
	}

	engine := cs.NewEngine(dev.File())

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := &cs.Request{
			IPType: drm.HWIPGfx,
			IBs: []cs.IB{
				{Address: s.PacketAddress(), SizeDW: s.PacketDWs, IPType: drm.HWIPGfx},
			},
			Handles: []drm.BoListEntry{{BoHandle: packets.Handle()}},
		}
		result, err := engine.Submit(req, ctx)
		if result != cs.ResultOK {
			b.Fatalf("submission failed (%s): %v", result, err)
		}
		if err := ctx.WaitForFence(drm.HWIPGfx, 0, req.SeqNo); err != nil {
			b.Fatal(err)
		}
	}
}
