// Package stream implements the async double-buffered stdin/stdout
// streams: each owns exactly one background goroutine that keeps the
// non-active half in flight while the caller drains or fills the
// active half, handed off with channels instead of a bare spin loop
// (the park/unpark alternative spec's design notes call out as
// equally compliant).
package stream

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daedaluz/fdev/poll"

	"github.com/daedaluz/bin2carray/internal/ioerr"
	"github.com/daedaluz/bin2carray/internal/ioshim"
)

// waitQuantum is how long the background goroutine waits on an
// EAGAIN/not-ready descriptor before checking the finalize flag and
// retrying — short enough that dispose is responsive, long enough
// that steady-state throughput never busy-spins the CPU.
const waitQuantum = 20 * time.Millisecond

// Reader is the async stdin stream (spec §4.3). Zero value is not
// usable; build one with NewReader and call Initialise.
type Reader struct {
	fd ioshim.Fd
	b  int

	half [2][]byte

	active      atomic.Int32 // half index the consumer currently owns
	ioPending   atomic.Bool  // true while the background goroutine is mid-refill (observability)
	eofHalf     atomic.Int32 // -1 until EOF observed, then the half index holding the final bytes
	eofLen      atomic.Int64
	terminalErr atomic.Bool
	errVal      atomic.Value

	finalize atomic.Bool

	refillReq  chan int
	refillDone chan error
	wg         sync.WaitGroup

	userReadHead   int
	awaitingRefill bool
	started        bool
}

func NewReader(fd ioshim.Fd, halfSize int) *Reader {
	r := &Reader{fd: fd, b: halfSize}
	r.half[0] = make([]byte, halfSize)
	r.half[1] = make([]byte, halfSize)
	r.eofHalf.Store(-1)
	r.refillReq = make(chan int, 1)
	r.refillDone = make(chan error, 1)
	return r
}

// Initialise sets stdin non-blocking and synchronously fills the
// first half. See spec §4.3 for the three possible outcomes.
func (r *Reader) Initialise() error {
	if err := ioshim.SetNonblocking(r.fd, true); err != nil {
		return ioerr.Wrap("setting stdin non-blocking", err)
	}
	n, err := r.fillHalf(0)
	if err != nil {
		return err
	}
	r.active.Store(0)
	r.userReadHead = 0
	if n < r.b {
		// Outcome (b): EOF reached mid-fill. No background thread.
		r.eofHalf.Store(0)
		r.eofLen.Store(int64(n))
		r.ioPending.Store(false)
		return nil
	}
	// Outcome (a): first half filled before EOF. Kick off the
	// background refill of the second half and start the goroutine.
	r.ioPending.Store(true)
	r.started = true
	r.wg.Add(1)
	go r.loop()
	r.refillReq <- 1
	r.awaitingRefill = true
	return nil
}

func (r *Reader) loop() {
	defer r.wg.Done()
	for target := range r.refillReq {
		if target < 0 {
			return
		}
		n, err := r.fillHalf(target)
		if r.finalize.Load() {
			r.refillDone <- ioerr.ErrClosed
			return
		}
		if err != nil {
			r.terminalErr.Store(true)
			r.errVal.Store(err)
			r.ioPending.Store(false)
			r.refillDone <- err
			return
		}
		if n < r.b {
			r.eofHalf.Store(int32(target))
			r.eofLen.Store(int64(n))
			r.ioPending.Store(false)
			r.refillDone <- nil
			return
		}
		r.ioPending.Store(false)
		r.refillDone <- nil
	}
}

// fillHalf reads until half[target] is completely full, EOF is hit,
// or a hard error occurs, retrying EAGAIN via poll.WaitInput rather
// than busy-spinning.
func (r *Reader) fillHalf(target int) (int, error) {
	buf := r.half[target]
	pos := 0
	for pos < len(buf) {
		if r.finalize.Load() {
			return pos, nil
		}
		n, err := ioshim.Read(r.fd, buf[pos:])
		if err != nil {
			if isWouldBlock(err) {
				// poll.WaitInput's own error (typically just a wait
				// timeout) is not fatal here: we fall through and
				// retry the read either way, matching the EAGAIN
				// retry spin spec describes, just parked instead of
				// busy-looping.
				_ = poll.WaitInput(r.fd, waitQuantum)
				continue
			}
			return pos, ioerr.Wrap("reading stdin", err)
		}
		if n == 0 {
			return pos, nil // EOF
		}
		pos += n
	}
	return pos, nil
}

// Read copies up to len(out) bytes in order from the active half,
// swapping to the other half (waiting for its refill to finish, or
// observing EOF) as needed. It returns io.EOF once no further bytes
// will ever arrive, possibly alongside a final non-zero n.
func (r *Reader) Read(out []byte) (int, error) {
	if r.terminalErr.Load() {
		return 0, r.loadErr()
	}
	copied := 0
	for copied < len(out) {
		h := int(r.active.Load())
		avail := r.b
		if r.eofHalf.Load() == int32(h) {
			avail = int(r.eofLen.Load())
		}
		if r.userReadHead < avail {
			n := copy(out[copied:], r.half[h][r.userReadHead:avail])
			r.userReadHead += n
			copied += n
			continue
		}
		// Active half exhausted.
		if r.eofHalf.Load() == int32(h) {
			return copied, io.EOF
		}
		if r.awaitingRefill {
			err := <-r.refillDone
			r.awaitingRefill = false
			if err != nil {
				return copied, err
			}
		}
		other := 1 - h
		r.active.Store(other)
		r.userReadHead = 0
		if r.eofHalf.Load() == -1 {
			r.ioPending.Store(true)
			r.refillReq <- h
			r.awaitingRefill = true
		}
	}
	return copied, nil
}

// Dispose flips the finalize flag, unblocks the background goroutine
// and joins it. The transport engines call it after a clean EOF and
// also on their error paths (setup failure, emit failure), so stream
// disposal is not skipped when a run ends in an error.
func (r *Reader) Dispose() error {
	r.finalize.Store(true)
	if r.started {
		select {
		case r.refillReq <- -1:
		default:
		}
		r.wg.Wait()
	}
	return nil
}

func (r *Reader) loadErr() error {
	if v := r.errVal.Load(); v != nil {
		return v.(error)
	}
	return nil
}
