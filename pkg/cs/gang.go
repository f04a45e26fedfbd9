package cs

import (
	"fmt"

	"github.com/emergingrobotics/go-amdgpu/pkg/device"
	"github.com/emergingrobotics/go-amdgpu/pkg/drm"
	"github.com/emergingrobotics/go-amdgpu/pkg/ipblock"
	"github.com/emergingrobotics/go-amdgpu/pkg/memory"
)

// ibBufferSize is the allocation granule for packet buffers
const ibBufferSize = 4096

// Gang write lengths in dwords. The producer write is kept large so that
// even a fast GPU leaves the consumer's wait packet something to wait on;
// the consumer write is kept small.
const (
	gangProducerDwords = ibBufferSize * 3 / 4
	gangConsumerDwords = 4
)

// GangOptions configures one gang run
type GangOptions struct {
	// Ring is the ring index shared by both IBs
	Ring uint32
	// ReserveVMID brackets the submission with an explicit VMID
	// reservation, exercising the alternate scheduling path. Output
	// verification is skipped in this mode.
	ReserveVMID bool
}

// Gang builds and submits a two-engine gang: a compute producer writing a
// sentinel pattern and a gfx consumer that waits on the producer's memory
// before writing its own result. Both IBs go to the kernel as one atomic
// submission; ordering between them is enforced by the packets, not by
// this layer.
type Gang struct {
	dev    *device.Device
	mem    *memory.Manager
	blocks *ipblock.Table
	engine *Engine
}

// NewGang creates a gang coordinator
func NewGang(dev *device.Device, mem *memory.Manager, blocks *ipblock.Table) *Gang {
	return &Gang{
		dev:    dev,
		mem:    mem,
		blocks: blocks,
		engine: NewEngine(dev.File()),
	}
}

// prepareStream allocates and wires one stream: a data buffer of
// writeLength dwords and a packet buffer with headroom for the write
// packet covering it.
func (g *Gang) prepareStream(writeLength uint32) (*ipblock.Stream, error) {
	data, err := g.mem.Alloc(uint64(writeLength)*4, ibBufferSize, drm.GemDomainGTT, 0)
	if err != nil {
		return nil, err
	}
	packets, err := g.mem.Alloc(ibBufferSize+uint64(writeLength)*4, ibBufferSize, drm.GemDomainGTT, 0)
	if err != nil {
		data.Free()
		return nil, err
	}
	return ipblock.NewStream(data, packets, writeLength), nil
}

// Run executes one gang submission and, unless VMID reservation is
// requested, verifies both engines' output buffers.
func (g *Gang) Run(opts GangOptions) error {
	gfxBlock, err := g.blocks.Get(drm.HWIPGfx)
	if err != nil {
		return err
	}
	computeBlock, err := g.blocks.Get(drm.HWIPCompute)
	if err != nil {
		return err
	}

	for _, ip := range []drm.HWIPType{drm.HWIPGfx, drm.HWIPCompute} {
		ok, err := g.dev.RingAvailable(ip, opts.Ring)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("ring %d not available on %s", opts.Ring, ip)
		}
	}

	ctx, err := CreateContext(g.dev, g.mem, PriorityMedium)
	if err != nil {
		return err
	}
	defer ctx.Destroy()

	if opts.ReserveVMID {
		if err := g.dev.File().VMReserveVMID(0); err != nil {
			return fmt.Errorf("failed to reserve vmid: %w", err)
		}
		defer g.dev.File().VMUnreserveVMID(0)
	}

	// producer: compute fills its data buffer with the pattern
	producer, err := g.prepareStream(gangProducerDwords)
	if err != nil {
		return fmt.Errorf("failed to prepare producer stream: %w", err)
	}
	// consumer: gfx waits on the last dword the producer writes, then
	// fills its own data buffer
	consumer, err := g.prepareStream(gangConsumerDwords)
	if err != nil {
		producer.Data.Free()
		producer.Packets.Free()
		return fmt.Errorf("failed to prepare consumer stream: %w", err)
	}

	rc := &ipblock.RingContext{
		Ring:    opts.Ring,
		Streams: [2]*ipblock.Stream{producer, consumer},
	}
	defer rc.Free()

	if err := computeBlock.Funcs.WriteLinear(producer); err != nil {
		return err
	}

	ownAddr := consumer.TargetAddr
	consumer.TargetAddr = producer.Data.GPUAddress() + (gangProducerDwords-1)*4
	if err := gfxBlock.Funcs.WaitRegMem(consumer); err != nil {
		return err
	}
	consumer.TargetAddr = ownAddr
	if err := gfxBlock.Funcs.WriteLinear(consumer); err != nil {
		return err
	}

	req := &Request{
		IPType: drm.HWIPGfx,
		Ring:   opts.Ring,
		IBs: []IB{
			{Address: producer.PacketAddress(), SizeDW: producer.PacketDWs, IPType: drm.HWIPCompute},
			{Address: consumer.PacketAddress(), SizeDW: consumer.PacketDWs, IPType: drm.HWIPGfx},
		},
		Handles: []drm.BoListEntry{
			{BoHandle: consumer.Packets.Handle()},
			{BoHandle: producer.Packets.Handle()},
			{BoHandle: consumer.Data.Handle()},
			{BoHandle: producer.Data.Handle()},
		},
	}

	result, err := g.engine.Submit(req, ctx)
	if result != ResultOK {
		return fmt.Errorf("gang submission failed (%s): %w", result, err)
	}

	if err := ctx.WaitForFence(drm.HWIPGfx, opts.Ring, req.SeqNo); err != nil {
		return err
	}

	if !opts.ReserveVMID {
		if err := computeBlock.Funcs.Compare(producer, 1); err != nil {
			return fmt.Errorf("producer verification failed: %w", err)
		}
		if err := gfxBlock.Funcs.Compare(consumer, 1); err != nil {
			return fmt.Errorf("consumer verification failed: %w", err)
		}
	}
	return nil
}
