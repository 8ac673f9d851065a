package stream

import (
	"sync"
	"sync/atomic"

	"github.com/daedaluz/fdev/poll"

	"github.com/daedaluz/bin2carray/internal/ioerr"
	"github.com/daedaluz/bin2carray/internal/ioshim"
)

type flushJob struct {
	half int
	size int
}

// Writer is the async stdout stream (spec §4.4): a background
// flusher drains completed halves while the producer fills the other.
type Writer struct {
	fd ioshim.Fd
	b  int

	half [2][]byte

	active      atomic.Int32
	ioPending   atomic.Bool // observability only; handoff correctness lives in the channels below
	terminalErr atomic.Bool
	errVal      atomic.Value

	finalize atomic.Bool

	jobCh  chan flushJob
	doneCh chan error
	wg     sync.WaitGroup

	userWriteHead int
	awaitingJob   bool
	started       bool
}

func NewWriter(fd ioshim.Fd, halfSize int) *Writer {
	w := &Writer{fd: fd, b: halfSize}
	w.half[0] = make([]byte, halfSize)
	w.half[1] = make([]byte, halfSize)
	w.jobCh = make(chan flushJob, 1)
	w.doneCh = make(chan error, 1)
	return w
}

// Initialise starts the background flusher goroutine.
func (w *Writer) Initialise() error {
	w.active.Store(0)
	w.started = true
	w.wg.Add(1)
	go w.loop()
	return nil
}

// Write fills the active half, handing it off to the flusher and
// swapping to the other half whenever it fills completely, and
// continuing with any remainder. Once a background write fails, every
// subsequent call returns the sticky error immediately.
func (w *Writer) Write(p []byte) error {
	if w.terminalErr.Load() {
		return w.loadErr()
	}
	for len(p) > 0 {
		h := int(w.active.Load())
		room := w.b - w.userWriteHead
		n := room
		if n > len(p) {
			n = len(p)
		}
		copy(w.half[h][w.userWriteHead:], p[:n])
		w.userWriteHead += n
		p = p[n:]
		if w.userWriteHead == w.b {
			if err := w.handoff(h, w.b); err != nil {
				return err
			}
			w.active.Store(1 - h)
			w.userWriteHead = 0
		}
	}
	return nil
}

// handoff waits for any previously issued job to complete (bounding
// the pipeline to one filled buffer plus one in-flight write, per
// spec §8 property 6) before queueing the next one.
func (w *Writer) handoff(half, size int) error {
	if err := w.waitPrevious(); err != nil {
		return err
	}
	w.ioPending.Store(true)
	w.jobCh <- flushJob{half: half, size: size}
	w.awaitingJob = true
	return nil
}

func (w *Writer) waitPrevious() error {
	if !w.awaitingJob {
		return nil
	}
	err := <-w.doneCh
	w.awaitingJob = false
	return err
}

// Flush forces a synchronous drain of whatever is currently in the
// active half (which may be smaller than a full half), then resets
// the head to the start of the new active half.
func (w *Writer) Flush() error {
	if w.userWriteHead > 0 {
		h := int(w.active.Load())
		size := w.userWriteHead
		if err := w.handoff(h, size); err != nil {
			return err
		}
		if err := w.waitPrevious(); err != nil {
			return err
		}
		w.active.Store(1 - h)
		w.userWriteHead = 0
		return nil
	}
	return w.waitPrevious()
}

// Dispose performs a final flush, then joins the background flusher.
func (w *Writer) Dispose() error {
	err := w.Flush()
	w.finalize.Store(true)
	if w.started {
		select {
		case w.jobCh <- flushJob{half: -1}:
		default:
		}
		w.wg.Wait()
	}
	return err
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for job := range w.jobCh {
		if job.half < 0 {
			return
		}
		err := w.drain(job.half, job.size)
		w.ioPending.Store(false)
		if err != nil {
			w.terminalErr.Store(true)
			w.errVal.Store(err)
			w.doneCh <- err
			return
		}
		w.doneCh <- nil
	}
}

// drain writes exactly size bytes from half[half], retrying partial
// writes and waiting on backpressure via poll.WaitOutput instead of
// busy-spinning when stdout (commonly a pipe) is not yet writable.
func (w *Writer) drain(half, size int) error {
	buf := w.half[half][:size]
	pos := 0
	for pos < len(buf) {
		if w.finalize.Load() && pos == 0 {
			return ioerr.ErrClosed
		}
		n, err := ioshim.Write(w.fd, buf[pos:])
		if err != nil {
			if isWouldBlock(err) {
				_ = poll.WaitOutput(w.fd, waitQuantum)
				continue
			}
			return ioerr.Wrap("writing stdout", err)
		}
		pos += n
	}
	return nil
}

func (w *Writer) loadErr() error {
	if v := w.errVal.Load(); v != nil {
		return v.(error)
	}
	return nil
}
