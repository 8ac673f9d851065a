// Package transport selects one of the four data-movement engines
// (spec §4.5) at startup by inspecting stdin and stdout, and runs the
// chosen engine to completion.
package transport

import (
	"github.com/daedaluz/bin2carray/internal/format"
	"github.com/daedaluz/bin2carray/internal/ioerr"
	"github.com/daedaluz/bin2carray/internal/ioshim"
)

// Mode is the chosen data-movement strategy.
type Mode int

const (
	MmapInVmspliceOut Mode = iota
	MmapInBufferedOut
	ReadInVmspliceOut
	ReadInBufferedOut
)

func (m Mode) String() string {
	switch m {
	case MmapInVmspliceOut:
		return "mmap-input+vmsplice-output"
	case MmapInBufferedOut:
		return "mmap-input+buffered-output"
	case ReadInVmspliceOut:
		return "read-input+vmsplice-output"
	case ReadInBufferedOut:
		return "read-input+buffered-output"
	default:
		return "unknown"
	}
}

// maxInt is the largest value a platform int can hold, standing in
// for spec's "sizeof(size_t_max)" bound on mmap-able file sizes.
const maxInt = int64(^uint(0) >> 1)

// ErrNoInputData is the "no input data" sentinel for zero-length
// regular-file stdin (spec §4.5).
var ErrNoInputData = ioerr.New("no input data")

// Run selects an engine for (stdinFd, stdoutFd) and drives the full
// pipeline: per-byte formatting of every input byte into the chosen
// output path. debugf receives human-readable diagnostics about the
// selection and any fallback taken; pass a no-op to discard them. It
// returns the total number of input bytes consumed, so the caller can
// detect empty input regardless of which engine ran.
//
// onFirstByte, if non-nil, is invoked exactly once, immediately before
// the first output byte is about to be produced — never if the input
// turns out to be empty. Callers that need to emit framing ahead of
// the byte sequence (as cmd/bin2carray does for the declaration
// prefix) use this to defer that write until input is confirmed
// non-empty, rather than writing it speculatively and having to
// unwind it on the empty-input error path.
func Run(stdinFd, stdoutFd ioshim.Fd, onFirstByte func() error, debugf func(string, ...any)) (int64, error) {
	mode, err := selectMode(stdinFd, stdoutFd, debugf)
	if err != nil {
		return 0, err
	}
	debugf("selected transport engine: %s", mode)
	switch mode {
	case MmapInVmspliceOut:
		return runMmapVmsplice(stdinFd, stdoutFd, onFirstByte, debugf)
	case MmapInBufferedOut:
		return runMmapBuffered(stdinFd, stdoutFd, onFirstByte, debugf)
	case ReadInVmspliceOut:
		return runReadVmsplice(stdinFd, stdoutFd, onFirstByte, debugf)
	default:
		return runReadBuffered(stdinFd, stdoutFd, onFirstByte, debugf)
	}
}

// emitMmapBytes runs the initial/chunk/single program triple over an
// in-memory byte slice, per spec §4.5.1: chunk-aligned emits, then a
// byte-at-a-time tail. onFirstByte (if non-nil) fires before the very
// first emit, and only when data is non-empty.
func emitMmapBytes(data []byte, sink format.Sink, onFirstByte func() error) error {
	if len(data) == 0 {
		return nil
	}
	if onFirstByte != nil {
		if err := onFirstByte(); err != nil {
			return err
		}
	}
	if _, err := format.Emit(format.Initial, data[0:1], sink, false); err != nil {
		return err
	}
	i := 1
	for i+format.ChunkSize <= len(data) {
		if _, err := format.Emit(format.Chunk, data[i:i+format.ChunkSize], sink, false); err != nil {
			return err
		}
		i += format.ChunkSize
	}
	for ; i < len(data); i++ {
		if _, err := format.Emit(format.Single, data[i:i+1], sink, false); err != nil {
			return err
		}
	}
	return nil
}

func roundUp(n, multiple int) int {
	if multiple <= 0 {
		return n
	}
	if n%multiple == 0 {
		return n
	}
	return n + (multiple - n%multiple)
}
