package transport

import (
	"io"

	"github.com/daedaluz/bin2carray/internal/format"
	"github.com/daedaluz/bin2carray/internal/ioshim"
	"github.com/daedaluz/bin2carray/internal/stream"
)

// streamHalfSize is B from spec §3: the size of each half of an async
// stream's double buffer.
const streamHalfSize = 65536

// emitStreamBytes pulls format.ChunkSize-byte groups from r and emits
// them into sink, per spec §4.5.4: a short read signals EOF, and
// whatever was received on that last read is emitted byte-at-a-time.
// onFirstByte (if non-nil) fires once, before the first byte read from
// r is emitted — it is never called if r yields no bytes at all.
func emitStreamBytes(r *stream.Reader, sink format.Sink, onFirstByte func() error) (int64, error) {
	buf := make([]byte, format.ChunkSize)
	first := true
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if first {
				if onFirstByte != nil {
					if e := onFirstByte(); e != nil {
						return total, e
					}
				}
				if _, e := format.Emit(format.Initial, buf[0:1], sink, false); e != nil {
					return total, e
				}
				first = false
				for i := 1; i < n; i++ {
					if _, e := format.Emit(format.Single, buf[i:i+1], sink, false); e != nil {
						return total, e
					}
				}
			} else if n == len(buf) {
				if _, e := format.Emit(format.Chunk, buf[:n], sink, false); e != nil {
					return total, e
				}
			} else {
				for i := 0; i < n; i++ {
					if _, e := format.Emit(format.Single, buf[i:i+1], sink, false); e != nil {
						return total, e
					}
				}
			}
		}
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// runReadBuffered is the READ_INPUT_BUFFERED_OUTPUT engine: both ends
// go through an async stream, available on every platform.
func runReadBuffered(stdinFd, stdoutFd ioshim.Fd, onFirstByte func() error, debugf func(string, ...any)) (int64, error) {
	r := stream.NewReader(stdinFd, streamHalfSize)
	if err := r.Initialise(); err != nil {
		return 0, err
	}
	w := stream.NewWriter(stdoutFd, streamHalfSize)
	if err := w.Initialise(); err != nil {
		_ = r.Dispose()
		return 0, err
	}
	sink := format.NewStreamSink(w)

	total, emitErr := emitStreamBytes(r, sink, onFirstByte)
	readDisposeErr := r.Dispose()
	writeDisposeErr := w.Dispose()

	if emitErr != nil {
		return total, emitErr
	}
	if readDisposeErr != nil {
		return total, readDisposeErr
	}
	return total, writeDisposeErr
}
