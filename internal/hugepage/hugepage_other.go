//go:build !linux

package hugepage

import "github.com/daedaluz/bin2carray/internal/ioerr"

// Size always fails on non-Linux targets; the VMSPLICE engine (the
// only consumer of huge pages) is unavailable there anyway.
func Size() (int64, error) {
	return -1, ioerr.New("huge-page introspection unsupported on this platform")
}
