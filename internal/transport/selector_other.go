//go:build !linux

package transport

import "github.com/daedaluz/bin2carray/internal/ioshim"

// selectMode on non-Linux platforms always takes the portable
// read-input+buffered-output path: mmap and vmsplice are Linux-only
// syscalls (spec §4.5 notes both as Linux-specific fast paths).
func selectMode(stdinFd, stdoutFd ioshim.Fd, debugf func(string, ...any)) (Mode, error) {
	debugf("non-Linux platform: forcing read-input+buffered-output transport")
	return ReadInBufferedOut, nil
}
