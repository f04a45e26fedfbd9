package ipblock

// SDMA packet encoding - must match the SDMA microcode packet format
const (
	sdmaOpWrite      = 2
	sdmaOpPollRegMem = 8

	sdmaSubOpWriteLinear = 0

	// POLL_REGMEM header bits: compare function in 28:30, bit 31 selects
	// memory space.
	sdmaPollFuncEqual = 3 << 28
	sdmaPollMemSpace  = 1 << 31

	sdmaPollRetryCount = 0xfff << 16
	sdmaPollInterval   = 10
)

// sdmaPacket builds an SDMA packet header
func sdmaPacket(op, subOp, extra uint32) uint32 {
	return op&0xff | (subOp&0xff)<<8 | (extra&0xffff)<<16
}

// sdmaFuncs encodes packets for the SDMA rings
type sdmaFuncs struct{}

// WriteLinear emits a WRITE/LINEAR packet: header, 64-bit destination,
// dword count minus one, then the payload.
func (f *sdmaFuncs) WriteLinear(s *Stream) error {
	s.emit(sdmaPacket(sdmaOpWrite, sdmaSubOpWriteLinear, 0))
	s.emit(uint32(s.TargetAddr))
	s.emit(uint32(s.TargetAddr >> 32))
	s.emit(s.WriteLength - 1)
	for i := uint32(0); i < s.WriteLength; i++ {
		s.emit(TestPattern)
	}
	return s.Err()
}

// WaitRegMem emits POLL_REGMEM on s.TargetAddr until it equals the pattern
func (f *sdmaFuncs) WaitRegMem(s *Stream) error {
	s.emit(sdmaPacket(sdmaOpPollRegMem, 0, 0) | sdmaPollFuncEqual | sdmaPollMemSpace)
	s.emit(uint32(s.TargetAddr))
	s.emit(uint32(s.TargetAddr >> 32))
	s.emit(TestPattern)
	s.emit(waitRegMemMaskAll)
	s.emit(sdmaPollRetryCount | sdmaPollInterval)
	return s.Err()
}

// Compare verifies the data buffer against the pattern
func (f *sdmaFuncs) Compare(s *Stream, div int) error {
	return compareWords(s, div)
}
