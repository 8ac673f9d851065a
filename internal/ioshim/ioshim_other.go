//go:build !linux

package ioshim

import (
	"errors"
	"os"
)

// Read performs a single raw, non-interpreting read.
func Read(fd Fd, p []byte) (int, error) {
	return rawFile(fd).Read(p)
}

// Write performs a single raw, non-interpreting write.
func Write(fd Fd, p []byte) (int, error) {
	return rawFile(fd).Write(p)
}

// SetNonblocking is a no-op outside POSIX: the buffered engine never
// relies on non-blocking descriptors there.
func SetNonblocking(fd Fd, nonblocking bool) error {
	return nil
}

// StatKind always reports KindOther on non-Linux targets, which
// forces the transport selector onto READ_INPUT_BUFFERED_OUTPUT.
func StatKind(fd Fd) (FileKind, error) {
	return KindOther, nil
}

// FileSize is unsupported outside the Linux mmap path.
func FileSize(fd Fd) (int64, error) {
	return 0, errors.New("file size introspection unsupported on this platform")
}

// AvailableBytes is unsupported outside the Linux ioctl path.
func AvailableBytes(fd Fd) (int, error) {
	return 0, errors.New("FIONREAD unsupported on this platform")
}

func rawFile(fd Fd) *os.File {
	return os.NewFile(uintptr(fd), "")
}
