//go:build linux

package transport

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/daedaluz/bin2carray/internal/hugepage"
	"github.com/daedaluz/bin2carray/internal/ioerr"
	"github.com/daedaluz/bin2carray/internal/ioshim"
)

// maxSingleEmitLen is the longest output of one single-byte emit (the
// Single program): ", " plus up to 3 decimal digits. A Chunk emit is
// longer as a whole, but it reaches pageSink as separate Write calls
// of at most 3 bytes each, so no single Write exceeds this length.
const maxSingleEmitLen = len(", ") + 3

const (
	spliceFMove     = 0x01
	spliceFNonblock = 0x02
	spliceFGift     = 0x08
)

func pipeCapacityProbe(fd ioshim.Fd) bool {
	_, err := queryPipeCapacity(fd)
	return err == nil
}

func queryPipeCapacity(fd ioshim.Fd) (int, error) {
	n, err := unix.FcntlInt(uintptr(fd), unix.F_GETPIPE_SZ, 0)
	if err != nil {
		return 0, ioerr.Wrap("querying pipe capacity", err)
	}
	return n, nil
}

// allocPageBuffer maps an anonymous, page-aligned buffer of at least
// size bytes, preferring huge pages when available (the length may be
// rounded up to the huge-page size); it falls back to base pages on
// huge-page failure.
func allocPageBuffer(size int) ([]byte, error) {
	pageSize := os.Getpagesize()
	aligned := roundUp(size, pageSize)

	if hp, err := hugepage.Size(); err == nil && hp > 0 {
		hugeAligned := roundUp(aligned, int(hp))
		data, err := unix.Mmap(-1, 0, hugeAligned,
			unix.PROT_READ|unix.PROT_WRITE,
			unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_HUGETLB)
		if err == nil {
			return data, nil
		}
	}
	data, err := unix.Mmap(-1, 0, aligned,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, ioerr.Wrap("allocating page-aligned output buffer", err)
	}
	return data, nil
}

func unmapPageBuffer(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return ioerr.Wrap("munmap output buffer", unix.Munmap(data))
}

// vmsplice issues SYS_VMSPLICE against fd with the given flags,
// retrying on EAGAIN and on partial transfers. buf must not be read,
// written, or unmapped by the caller until this returns successfully.
func vmsplice(fd ioshim.Fd, buf []byte, flags uintptr) error {
	if len(buf) == 0 {
		return nil
	}
	off := 0
	for off < len(buf) {
		iov := unix.Iovec{Base: &buf[off]}
		iov.SetLen(len(buf) - off)
		n, _, errno := unix.Syscall6(
			unix.SYS_VMSPLICE,
			uintptr(fd),
			uintptr(unsafe.Pointer(&iov)),
			1,
			flags,
			0, 0,
		)
		if errno != 0 {
			if errno == unix.EAGAIN {
				continue
			}
			return ioerr.Wrap("vmsplice", errno)
		}
		off += int(n)
	}
	return nil
}

// giftSplice moves ownership of buf's pages into the pipe at fd. buf
// must be page-aligned and must not be touched again by the caller
// until the kernel has drained it. Used for the double-buffer swap
// path, where the other buffer is guaranteed to be used next.
func giftSplice(fd ioshim.Fd, buf []byte) error {
	return vmsplice(fd, buf, uintptr(spliceFGift|spliceFMove))
}

// plainSplice copies buf into the pipe at fd with zero flags, per
// spec §4.5.2's "splice only the page-aligned prefix ... with
// zero-flags" for the terminal partial buffer. Unlike giftSplice this
// does not transfer page ownership, so the caller may unmap buf
// immediately after this returns.
func plainSplice(fd ioshim.Fd, buf []byte) error {
	return vmsplice(fd, buf, 0)
}

// pageSink drives format emission into the vmsplice double buffer,
// implementing the overflow-staging algorithm of spec §4.5.2.
type pageSink struct {
	bufs    [2][]byte
	cur     int
	pos     int
	guard   int
	pipeCap int
	staging []byte
	stgLen  int
	out     ioshim.Fd
	err     error
}

func newPageSink(bufA, bufB []byte, pipeCap int, out ioshim.Fd) *pageSink {
	s := &pageSink{out: out, pipeCap: pipeCap}
	s.bufs[0] = bufA
	s.bufs[1] = bufB
	s.guard = pipeCap - maxSingleEmitLen
	s.staging = make([]byte, 2*maxSingleEmitLen)
	return s
}

func (s *pageSink) Write(p []byte) (int, error) {
	if s.err != nil {
		return -1, s.err
	}
	if s.pos < s.guard {
		n := copy(s.bufs[s.cur][s.pos:], p)
		s.pos += n
		return n, nil
	}
	n := copy(s.staging[s.stgLen:], p)
	s.stgLen += n
	if err := s.drainIfFull(); err != nil {
		s.err = err
		return -1, err
	}
	return n, nil
}

func (s *pageSink) WriteNul() error { return nil }

func (s *pageSink) drainIfFull() error {
	need := s.pipeCap - s.pos
	if need <= 0 || s.stgLen < need {
		return nil
	}
	copy(s.bufs[s.cur][s.pos:s.pos+need], s.staging[:need])
	s.pos += need
	if err := giftSplice(s.out, s.bufs[s.cur][:s.pos]); err != nil {
		return err
	}
	remainder := s.stgLen - need
	copy(s.staging[0:], s.staging[need:s.stgLen])
	s.stgLen = remainder
	s.cur = 1 - s.cur
	s.pos = 0
	if s.stgLen > 0 {
		n := copy(s.bufs[s.cur][0:], s.staging[:s.stgLen])
		s.pos = n
		s.stgLen = 0
	}
	return nil
}

// finish flushes whatever remains: the page-aligned prefix is spliced
// with zero-flags (spec §4.5.2), so the buffer can be safely unmapped
// right after without waiting on the kernel to drain it; any sub-page
// tail is written through tailWrite (the async stdout stream, since
// vmsplice requires page-aligned lengths).
func (s *pageSink) finish(pageSize int, tailWrite func([]byte) error) error {
	if s.err != nil {
		return s.err
	}
	if s.stgLen > 0 {
		n := copy(s.bufs[s.cur][s.pos:], s.staging[:s.stgLen])
		s.pos += n
		s.stgLen = 0
	}
	prefix := s.pos - (s.pos % pageSize)
	if prefix > 0 {
		if err := plainSplice(s.out, s.bufs[s.cur][:prefix]); err != nil {
			return err
		}
	}
	if tail := s.pos - prefix; tail > 0 {
		if err := tailWrite(s.bufs[s.cur][prefix:s.pos]); err != nil {
			return err
		}
	}
	return nil
}
