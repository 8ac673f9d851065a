//go:build linux

package transport

import (
	"golang.org/x/sys/unix"

	"github.com/daedaluz/bin2carray/internal/ioerr"
	"github.com/daedaluz/bin2carray/internal/ioshim"
)

// mmapProbe reports whether stdin can actually be mapped; a cheap
// zero-length-tolerant check used by the selector before committing to
// an mmap-based engine.
func mmapProbe(fd ioshim.Fd) bool {
	size, err := ioshim.FileSize(fd)
	if err != nil || size <= 0 {
		return false
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return false
	}
	_ = unix.Munmap(data)
	return true
}

// mmapInput maps the whole of fd read-only, sequential-access and
// will-need hinted, per spec §4.5.1.
func mmapInput(fd ioshim.Fd, size int64) ([]byte, error) {
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, ioerr.Wrap("mmap input", err)
	}
	_ = unix.Madvise(data, unix.MADV_WILLNEED)
	_ = unix.Madvise(data, unix.MADV_SEQUENTIAL)
	return data, nil
}

// munmapInput releases the mapping. Per spec §4.5.1 a failed unmap is
// fatal.
func munmapInput(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := unix.Munmap(data); err != nil {
		return ioerr.Wrap("munmap input", err)
	}
	return nil
}
