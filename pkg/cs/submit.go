package cs

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/emergingrobotics/go-amdgpu/pkg/drm"
)

// Retry policy for transient allocation failures. The kernel returns
// ENOMEM under parallel test load and usually recovers within a few
// milliseconds; past the deadline the failure is reported instead of
// hanging the harness on a genuinely broken kernel.
const (
	retryInterval = time.Millisecond
	retryWindow   = time.Second
)

// Result is the normalized outcome of a submission. The raw kernel errno
// is logged, not propagated: callers branch on exactly these outcomes.
type Result int

const (
	// ResultOK: the submission was accepted and SeqNo is valid
	ResultOK Result = iota
	// ResultOutOfMemory: resource exhaustion persisted past the retry window
	ResultOutOfMemory
	// ResultContextLost: the submission was cancelled because the context is lost
	ResultContextLost
	// ResultRejected: the kernel rejected the submission as invalid
	ResultRejected
)

// String returns the outcome name
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultOutOfMemory:
		return "out of memory"
	case ResultContextLost:
		return "context lost"
	case ResultRejected:
		return "rejected"
	}
	return fmt.Sprintf("unknown result (%d)", int(r))
}

// rawSubmitter is the raw kernel submission call
type rawSubmitter interface {
	SubmitRaw(ctxID uint32, chunks []drm.CSChunk) (uint64, error)
}

// Engine issues command submissions with bounded retry under memory
// pressure. NewEngine fills the clock and retry window; tests swap them.
type Engine struct {
	raw     rawSubmitter
	clock   backoff.Clock
	timeout Timeout
}

// NewEngine creates a submission engine over a raw submitter, normally a
// *drm.DeviceFile.
func NewEngine(raw rawSubmitter) *Engine {
	return &Engine{
		raw:     raw,
		clock:   backoff.SystemClock,
		timeout: TimeoutAfter(retryWindow),
	}
}

// Submit assembles the request's chunk set and issues the submission
// ioctl, retrying ENOMEM every millisecond until the retry window closes.
// On success the kernel sequence number is written into the request and
// recorded on the context. The normalized Result is always meaningful;
// the error carries the kernel code for diagnosis and is non-nil exactly
// when the Result is non-zero.
func (e *Engine) Submit(req *Request, ctx *Context) (Result, error) {
	set, err := buildChunks(req, ctx.fenceBO.Handle())
	if err != nil {
		return ResultRejected, err
	}

	var seqNo uint64
	attempt := func() error {
		seq, err := e.raw.SubmitRaw(ctx.id, set.chunks)
		if err != nil {
			if errors.Is(err, unix.ENOMEM) {
				return err
			}
			return backoff.Permanent(err)
		}
		seqNo = seq
		return nil
	}

	err = backoff.Retry(attempt, newDeadlineBackOff(e.clock, retryInterval, e.timeout))
	// the chunk payloads are referenced by user pointers until here
	runtime.KeepAlive(set)

	if err != nil {
		return classify(err), err
	}

	req.SeqNo = seqNo
	ctx.noteSubmission(req.IPType, req.Ring, seqNo)
	return ResultOK, nil
}

// classify normalizes a terminal submission error and logs it with the
// raw kernel code.
func classify(err error) Result {
	switch {
	case errors.Is(err, unix.ENOMEM):
		logrus.WithError(err).Warn("not enough memory for command submission")
		return ResultOutOfMemory
	case errors.Is(err, unix.ECANCELED):
		logrus.WithError(err).Warn("command submission cancelled: context lost")
		return ResultContextLost
	default:
		logrus.WithError(err).Warn("command submission rejected, see dmesg for details")
		return ResultRejected
	}
}
