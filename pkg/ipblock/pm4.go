package ipblock

// PM4 type-3 packet encoding - must match the CP microcode packet format
const (
	pm4PacketType3 = 3 << 30

	pm4OpNop        = 0x10
	pm4OpWriteData  = 0x37
	pm4OpWaitRegMem = 0x3c
)

// WRITE_DATA control fields
const (
	writeDataDstSelMem = 5 << 8
	writeDataWrConfirm = 1 << 20
)

// WAIT_REG_MEM control fields
const (
	waitRegMemFuncEqual    = 3 << 0
	waitRegMemSpaceMemory  = 1 << 4
	waitRegMemEnginePFP    = 0 << 8
	waitRegMemPollInterval = 0x04
	waitRegMemMaskAll      = 0xffffffff
)

// packet3 builds a type-3 packet header: count is the number of body
// dwords minus one.
func packet3(op, count uint32) uint32 {
	return pm4PacketType3 | count<<16 | op<<8
}

// pm4Funcs encodes CP packets. The gfx and compute rings share one packet
// format, so a single encoder serves both IP types.
type pm4Funcs struct{}

// WriteLinear emits WRITE_DATA: pattern dwords to s.TargetAddr with write
// confirmation, so a trailing WAIT_REG_MEM on the last dword observes the
// full write.
func (f *pm4Funcs) WriteLinear(s *Stream) error {
	s.emit(packet3(pm4OpWriteData, s.WriteLength+2))
	s.emit(writeDataDstSelMem | writeDataWrConfirm)
	s.emit(uint32(s.TargetAddr))
	s.emit(uint32(s.TargetAddr >> 32))
	for i := uint32(0); i < s.WriteLength; i++ {
		s.emit(TestPattern)
	}
	return s.Err()
}

// WaitRegMem emits WAIT_REG_MEM polling s.TargetAddr until it equals the
// pattern.
func (f *pm4Funcs) WaitRegMem(s *Stream) error {
	s.emit(packet3(pm4OpWaitRegMem, 5))
	s.emit(waitRegMemFuncEqual | waitRegMemSpaceMemory | waitRegMemEnginePFP)
	s.emit(uint32(s.TargetAddr))
	s.emit(uint32(s.TargetAddr >> 32))
	s.emit(TestPattern)
	s.emit(waitRegMemMaskAll)
	s.emit(waitRegMemPollInterval)
	return s.Err()
}

// Compare verifies the data buffer against the pattern
func (f *pm4Funcs) Compare(s *Stream, div int) error {
	return compareWords(s, div)
}

// WriteNop fills the stream with a single NOP packet of the given total
// length in dwords, yielding a valid do-nothing IB.
func WriteNop(s *Stream, dwords uint32) error {
	if dwords < 2 {
		dwords = 2
	}
	s.emit(packet3(pm4OpNop, dwords-2))
	for i := uint32(1); i < dwords; i++ {
		s.emit(0)
	}
	return s.Err()
}
