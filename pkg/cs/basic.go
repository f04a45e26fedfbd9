package cs

import (
	"fmt"

	"github.com/emergingrobotics/go-amdgpu/pkg/device"
	"github.com/emergingrobotics/go-amdgpu/pkg/drm"
	"github.com/emergingrobotics/go-amdgpu/pkg/ipblock"
	"github.com/emergingrobotics/go-amdgpu/pkg/memory"
)

const basicNopDwords = 16

// RunBasic submits a minimal single-IB NOP stream to one engine and waits
// for its fence. It proves the whole path end to end: context creation,
// chunk assembly, submission and user-fence signaling.
func RunBasic(dev *device.Device, mem *memory.Manager, ip drm.HWIPType, ring uint32) error {
	ctx, err := CreateContext(dev, mem, PriorityMedium)
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	packets, err := mem.Alloc(ibBufferSize, ibBufferSize, drm.GemDomainGTT, 0)
	if err != nil {
		return fmt.Errorf("failed to allocate packet buffer: %w", err)
	}
	defer packets.Free()
	clear(packets.Bytes())

	s := &ipblock.Stream{
		Packets: packets,
		PM4:     packets.Words(),
	}
	if err := ipblock.WriteNop(s, basicNopDwords); err != nil {
		return err
	}

	req := &Request{
		IPType: ip,
		Ring:   ring,
		IBs: []IB{
			{Address: s.PacketAddress(), SizeDW: s.PacketDWs, IPType: ip},
		},
		Handles: []drm.BoListEntry{
			{BoHandle: packets.Handle()},
		},
	}

	engine := NewEngine(dev.File())
	result, err := engine.Submit(req, ctx)
	if result != ResultOK {
		return fmt.Errorf("submission failed (%s): %w", result, err)
	}
	if req.SeqNo == 0 {
		return fmt.Errorf("kernel returned sequence number 0")
	}

	return ctx.WaitForFence(ip, ring, req.SeqNo)
}
