//go:build linux

package ioshim

import (
	"syscall"
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
	"golang.org/x/sys/unix"
)

var fionread = ioctl.IOR('T', 0x1B, unsafe.Sizeof(int32(0)))

// Read performs a single raw, non-interpreting read, mirroring the
// teacher's Port.Read (syscall.Read(p.f, data)).
func Read(fd Fd, p []byte) (int, error) {
	return syscall.Read(fd, p)
}

// Write performs a single raw, non-interpreting write.
func Write(fd Fd, p []byte) (int, error) {
	return syscall.Write(fd, p)
}

// SetNonblocking flips O_NONBLOCK on fd so the async stdin reader can
// retry on EAGAIN instead of blocking the whole process.
func SetNonblocking(fd Fd, nonblocking bool) error {
	return syscall.SetNonblock(fd, nonblocking)
}

// StatKind classifies fd the way the transport selector needs:
// regular file, pipe, or anything else (tty, socket, char device).
func StatKind(fd Fd) (FileKind, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return KindOther, err
	}
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFREG:
		return KindRegular, nil
	case unix.S_IFIFO:
		return KindPipe, nil
	default:
		return KindOther, nil
	}
}

// FileSize returns the size in bytes of a regular file backing fd.
func FileSize(fd Fd) (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return 0, err
	}
	return st.Size, nil
}

// AvailableBytes queries how many bytes are currently buffered and
// ready to read on fd via FIONREAD, built with goioctl the same way
// the teacher builds its termios ioctl requests. Used only for debug
// logging ahead of the transport selector's decision.
func AvailableBytes(fd Fd) (int, error) {
	var n int32
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), fionread, uintptr(unsafe.Pointer(&n)))
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}
