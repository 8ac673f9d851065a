package stream

import "syscall"

// isWouldBlock reports whether err is the non-blocking retry signal
// the reader loop handles by waiting, not failing.
func isWouldBlock(err error) bool {
	return err == syscall.EAGAIN || err == syscall.EWOULDBLOCK
}
