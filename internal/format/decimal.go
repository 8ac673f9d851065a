package format

import "strconv"

// decimalEntry holds the pre-rendered, right-justified ASCII decimal
// text for one byte value, plus how many of the 3 possible digit
// slots are actually used (1 for 0-9, 2 for 10-99, 3 for 100-255).
// Precomputing this at package init means the hot per-byte path never
// calls strconv — it only slices digits[3-n:].
type decimalEntry struct {
	n      uint8
	digits [3]byte
}

var decimalTable [256]decimalEntry

func init() {
	for v := 0; v < 256; v++ {
		s := strconv.Itoa(v)
		var e decimalEntry
		e.n = uint8(len(s))
		copy(e.digits[3-len(s):], s)
		decimalTable[v] = e
	}
}

// decimalText returns the ASCII decimal rendering of v with no
// leading zeros, 1 to 3 bytes long.
func decimalText(v uint8) []byte {
	e := &decimalTable[v]
	return e.digits[3-e.n:]
}
