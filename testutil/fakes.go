// Package testutil provides fakes and helpers shared by the unit and
// integration tests.
package testutil

import (
	"time"

	"github.com/emergingrobotics/go-amdgpu/pkg/drm"
)

// FakeSubmitter scripts the raw submission ioctl. Each call consumes the
// next entry of Errs; a nil entry succeeds with Seq. Calls past the end
// of the script succeed.
type FakeSubmitter struct {
	Errs []error
	Seq  uint64

	Calls  int
	Chunks [][]drm.CSChunk
}

// SubmitRaw returns the next scripted outcome
func (f *FakeSubmitter) SubmitRaw(ctxID uint32, chunks []drm.CSChunk) (uint64, error) {
	i := f.Calls
	f.Calls++
	f.Chunks = append(f.Chunks, chunks)
	if i < len(f.Errs) && f.Errs[i] != nil {
		return 0, f.Errs[i]
	}
	return f.Seq, nil
}

// FakeClock is a deterministic clock for retry-deadline tests: every Now
// call advances it by Step.
type FakeClock struct {
	Base time.Time
	Step time.Duration

	calls int
}

// Now returns the base time advanced by one step per prior call
func (c *FakeClock) Now() time.Time {
	t := c.Base.Add(time.Duration(c.calls) * c.Step)
	c.calls++
	return t
}
