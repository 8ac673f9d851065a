//go:build !linux

package transport

import (
	"github.com/daedaluz/bin2carray/internal/ioerr"
	"github.com/daedaluz/bin2carray/internal/ioshim"
)

// On non-Linux platforms only the read-input+buffered-output engine is
// reachable (selectMode always returns ReadInBufferedOut), so these
// exist only to satisfy mode.go's switch and are never invoked.

func runMmapVmsplice(stdinFd, stdoutFd ioshim.Fd, onFirstByte func() error, debugf func(string, ...any)) (int64, error) {
	return 0, ioerr.New("mmap+vmsplice transport unsupported on this platform")
}

func runMmapBuffered(stdinFd, stdoutFd ioshim.Fd, onFirstByte func() error, debugf func(string, ...any)) (int64, error) {
	return 0, ioerr.New("mmap transport unsupported on this platform")
}

func runReadVmsplice(stdinFd, stdoutFd ioshim.Fd, onFirstByte func() error, debugf func(string, ...any)) (int64, error) {
	return 0, ioerr.New("vmsplice transport unsupported on this platform")
}
