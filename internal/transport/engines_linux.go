//go:build linux

package transport

import (
	"os"

	"github.com/daedaluz/bin2carray/internal/format"
	"github.com/daedaluz/bin2carray/internal/ioshim"
	"github.com/daedaluz/bin2carray/internal/stream"
)

// runMmapVmsplice is the MMAP_INPUT_VMSPLICE_OUTPUT engine (spec
// §4.5.1 + §4.5.2).
func runMmapVmsplice(stdinFd, stdoutFd ioshim.Fd, onFirstByte func() error, debugf func(string, ...any)) (int64, error) {
	size, err := ioshim.FileSize(stdinFd)
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, ErrNoInputData
	}
	data, err := mmapInput(stdinFd, size)
	if err != nil {
		return 0, err
	}

	pipeCap, err := queryPipeCapacity(stdoutFd)
	if err != nil {
		_ = munmapInput(data)
		return 0, err
	}
	pageSize := os.Getpagesize()
	bufSize := roundUp(pipeCap, pageSize)
	bufA, err := allocPageBuffer(bufSize)
	if err != nil {
		_ = munmapInput(data)
		return 0, err
	}
	bufB, err := allocPageBuffer(len(bufA))
	if err != nil {
		_ = unmapPageBuffer(bufA)
		_ = munmapInput(data)
		return 0, err
	}

	sink := newPageSink(bufA, bufB, pipeCap, stdoutFd)
	emitErr := emitMmapBytes(data, sink, onFirstByte)

	var tailErr error
	if emitErr == nil {
		tailWriter := stream.NewWriter(stdoutFd, streamHalfSize)
		if err := tailWriter.Initialise(); err != nil {
			tailErr = err
		} else {
			tailErr = sink.finish(pageSize, tailWriter.Write)
			if disposeErr := tailWriter.Dispose(); tailErr == nil {
				tailErr = disposeErr
			}
		}
	}

	// sink.finish spliced the terminal prefix with zero-flags, not a
	// gift, so the kernel already holds its own copy and bufA/bufB can
	// be unmapped immediately without waiting on the pipe consumer.
	unmapAErr := unmapPageBuffer(bufA)
	unmapBErr := unmapPageBuffer(bufB)
	unmapInErr := munmapInput(data)

	for _, e := range []error{emitErr, tailErr, unmapAErr, unmapBErr, unmapInErr} {
		if e != nil {
			return int64(len(data)), e
		}
	}
	return int64(len(data)), nil
}

// runMmapBuffered is the MMAP_INPUT_BUFFERED_OUTPUT engine.
func runMmapBuffered(stdinFd, stdoutFd ioshim.Fd, onFirstByte func() error, debugf func(string, ...any)) (int64, error) {
	size, err := ioshim.FileSize(stdinFd)
	if err != nil {
		return 0, err
	}
	if size == 0 {
		return 0, ErrNoInputData
	}
	data, err := mmapInput(stdinFd, size)
	if err != nil {
		return 0, err
	}
	w := stream.NewWriter(stdoutFd, streamHalfSize)
	if err := w.Initialise(); err != nil {
		_ = munmapInput(data)
		return 0, err
	}
	sink := format.NewStreamSink(w)
	emitErr := emitMmapBytes(data, sink, onFirstByte)
	disposeErr := w.Dispose()
	unmapErr := munmapInput(data)

	if emitErr != nil {
		return int64(len(data)), emitErr
	}
	if disposeErr != nil {
		return int64(len(data)), disposeErr
	}
	return int64(len(data)), unmapErr
}

// runReadVmsplice is the READ_INPUT_VMSPLICE_OUTPUT engine.
func runReadVmsplice(stdinFd, stdoutFd ioshim.Fd, onFirstByte func() error, debugf func(string, ...any)) (int64, error) {
	r := stream.NewReader(stdinFd, streamHalfSize)
	if err := r.Initialise(); err != nil {
		return 0, err
	}
	pipeCap, err := queryPipeCapacity(stdoutFd)
	if err != nil {
		_ = r.Dispose()
		return 0, err
	}
	pageSize := os.Getpagesize()
	bufSize := roundUp(pipeCap, pageSize)
	bufA, err := allocPageBuffer(bufSize)
	if err != nil {
		_ = r.Dispose()
		return 0, err
	}
	bufB, err := allocPageBuffer(len(bufA))
	if err != nil {
		_ = unmapPageBuffer(bufA)
		_ = r.Dispose()
		return 0, err
	}

	sink := newPageSink(bufA, bufB, pipeCap, stdoutFd)
	total, emitErr := emitStreamBytes(r, sink, onFirstByte)

	var tailErr error
	if emitErr == nil {
		tailWriter := stream.NewWriter(stdoutFd, streamHalfSize)
		if err := tailWriter.Initialise(); err != nil {
			tailErr = err
		} else {
			tailErr = sink.finish(pageSize, tailWriter.Write)
			if disposeErr := tailWriter.Dispose(); tailErr == nil {
				tailErr = disposeErr
			}
		}
	}

	readDisposeErr := r.Dispose()
	// As above: the terminal prefix went out via plainSplice (zero
	// flags), so unmapping bufA/bufB here doesn't race the consumer.
	unmapAErr := unmapPageBuffer(bufA)
	unmapBErr := unmapPageBuffer(bufB)

	for _, e := range []error{emitErr, tailErr, readDisposeErr, unmapAErr, unmapBErr} {
		if e != nil {
			return total, e
		}
	}
	return total, nil
}
