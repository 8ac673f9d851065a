//go:build linux

package transport

import "github.com/daedaluz/bin2carray/internal/ioshim"

// selectMode implements the decision tree in spec §4.5, with fallback
// chains on setup failure for each path that touches mmap/vmsplice.
func selectMode(stdinFd, stdoutFd ioshim.Fd, debugf func(string, ...any)) (Mode, error) {
	inKind, err := ioshim.StatKind(stdinFd)
	if err != nil {
		inKind = ioshim.KindOther
	}
	outKind, err := ioshim.StatKind(stdoutFd)
	if err != nil {
		outKind = ioshim.KindOther
	}

	if n, err := ioshim.AvailableBytes(stdinFd); err == nil {
		debugf("stdin backlog currently %d bytes", n)
	}

	switch {
	case inKind == ioshim.KindRegular && outKind == ioshim.KindPipe:
		size, err := ioshim.FileSize(stdinFd)
		if err != nil {
			debugf("fstat(stdin) failed (%v), falling back to read+vmsplice", err)
			return ReadInVmspliceOut, nil
		}
		if size == 0 {
			return 0, ErrNoInputData
		}
		if size > maxInt {
			debugf("input file too large to mmap on this platform, falling back to read+vmsplice")
			return ReadInVmspliceOut, nil
		}
		if !mmapProbe(stdinFd) {
			debugf("mmap probe failed, falling back to read+vmsplice")
			return ReadInVmspliceOut, nil
		}
		if !pipeCapacityProbe(stdoutFd) {
			debugf("pipe capacity query failed, falling back to mmap+buffered")
			return MmapInBufferedOut, nil
		}
		return MmapInVmspliceOut, nil

	case inKind == ioshim.KindRegular:
		size, err := ioshim.FileSize(stdinFd)
		if err == nil && size == 0 {
			return 0, ErrNoInputData
		}
		if err != nil || size > maxInt || !mmapProbe(stdinFd) {
			debugf("mmap unavailable for stdin, falling back to read+buffered")
			return ReadInBufferedOut, nil
		}
		return MmapInBufferedOut, nil

	case outKind == ioshim.KindPipe:
		if !pipeCapacityProbe(stdoutFd) {
			debugf("pipe capacity query failed, falling back to read+buffered")
			return ReadInBufferedOut, nil
		}
		return ReadInVmspliceOut, nil

	default:
		return ReadInBufferedOut, nil
	}
}
