//go:build linux

package hugepage

import (
	"os"

	"github.com/daedaluz/bin2carray/internal/ioerr"
)

// Size returns the huge-page size in bytes, or a negative sentinel
// alongside an error on any I/O or parse failure.
func Size() (int64, error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return -1, ioerr.Wrap("opening meminfo", err)
	}
	defer f.Close()
	return scan(f)
}
