// Package hugepage resolves the system's huge-page size in bytes by
// scanning /proc/meminfo for the Hugepagesize key, the way the kernel
// reports it (in kB).
package hugepage

import (
	"io"

	"github.com/daedaluz/bin2carray/internal/ioerr"
)

const key = "Hugepagesize"

// scanner is a streaming matcher for "Hugepagesize:   <digits> kB"
// that tolerates the key, the colon, or the digits being split across
// two separate reads. Hugepagesize has no proper prefix that is also
// a suffix of itself, so restarting the match at 0 or 1 on a mismatch
// (rather than a full KMP failure table) is sufficient.
type scanner struct {
	matched int
	state   int // 0=matching key, 1=skip to digits, 2=reading digits
	value   int64
	done    bool
}

const (
	stMatchKey = iota
	stSkipToDigits
	stReadDigits
)

func (s *scanner) feed(b byte) {
	if s.done {
		return
	}
	switch s.state {
	case stMatchKey:
		if b == key[s.matched] {
			s.matched++
			if s.matched == len(key) {
				s.state = stSkipToDigits
			}
			return
		}
		if b == key[0] {
			s.matched = 1
		} else {
			s.matched = 0
		}
	case stSkipToDigits:
		if b >= '0' && b <= '9' {
			s.value = int64(b - '0')
			s.state = stReadDigits
		}
		// colon and whitespace between the key and the digits are
		// simply skipped.
	case stReadDigits:
		if b >= '0' && b <= '9' {
			s.value = s.value*10 + int64(b-'0')
			return
		}
		s.done = true
	}
}

// scan reads r in fixed-size chunks, feeding every byte to the
// matcher so that a Hugepagesize match spanning a chunk boundary is
// still found.
func scan(r io.Reader) (int64, error) {
	var s scanner
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			s.feed(buf[i])
			if s.done {
				return s.value * 1024, nil
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return -1, ioerr.Wrap("reading meminfo", err)
		}
	}
	if s.state == stReadDigits {
		return s.value * 1024, nil
	}
	return -1, ioerr.New("Hugepagesize key not found")
}
