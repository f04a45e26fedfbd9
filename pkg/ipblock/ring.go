package ipblock

import (
	"fmt"

	"github.com/emergingrobotics/go-amdgpu/pkg/memory"
)

// Stream is one prepared command stream: a data buffer the packets target
// and a packet buffer the engine executes. The slice views alias the
// buffer objects' CPU mappings; unit tests may populate the slices
// directly without any device.
type Stream struct {
	Data    *memory.BufferObject
	Packets *memory.BufferObject

	// PM4 is the packet buffer viewed as dwords; PacketDWs counts the
	// dwords emitted so far.
	PM4       []uint32
	PacketDWs uint32

	// DataWords is the data buffer viewed as dwords; TargetAddr is the
	// device address packets write to or poll; WriteLength is the
	// pattern length in dwords.
	DataWords   []uint32
	TargetAddr  uint64
	WriteLength uint32

	// err latches the first packet-buffer overflow; later emits no-op
	err error
}

// NewStream wires a stream over freshly allocated data and packet buffers.
// Both mappings are cleared; the buffer manager gives no zero-fill
// guarantee.
func NewStream(data, packets *memory.BufferObject, writeLength uint32) *Stream {
	clear(data.Bytes())
	clear(packets.Bytes())
	return &Stream{
		Data:        data,
		Packets:     packets,
		PM4:         packets.Words(),
		DataWords:   data.Words(),
		TargetAddr:  data.GPUAddress(),
		WriteLength: writeLength,
	}
}

// PacketAddress returns the device address of the packet buffer
func (s *Stream) PacketAddress() uint64 {
	return s.Packets.GPUAddress()
}

// emit appends one dword to the packet buffer
func (s *Stream) emit(dw uint32) {
	if s.err != nil {
		return
	}
	if int(s.PacketDWs) >= len(s.PM4) {
		s.err = fmt.Errorf("packet buffer overflow at dword %d", s.PacketDWs)
		return
	}
	s.PM4[s.PacketDWs] = dw
	s.PacketDWs++
}

// Err returns the first error recorded while emitting packets
func (s *Stream) Err() error {
	return s.err
}

// RingContext is the scratch workspace for one submission: up to two
// concurrently prepared command streams. It is consumed once by the
// submission path and freed explicitly by the caller.
type RingContext struct {
	Ring    uint32
	Streams [2]*Stream
}

// Free releases every buffer held by the ring context's streams
func (rc *RingContext) Free() error {
	var firstErr error
	for _, s := range rc.Streams {
		if s == nil {
			continue
		}
		for _, bo := range []*memory.BufferObject{s.Data, s.Packets} {
			if bo == nil {
				continue
			}
			if err := bo.Free(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		s.Data, s.Packets = nil, nil
	}
	return firstErr
}
