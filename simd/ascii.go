package simd

import (
	"math/bits"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// hi8 masks the high bit of each byte in a 64-bit word. ASCII bytes have
// the high bit clear, so a non-zero masked word pinpoints a non-ASCII
// byte.
const hi8 uint64 = 0x8080808080808080

// IsASCII reports whether data contains only ASCII bytes. Executors use
// this to skip UTF-8 decoding for subjects that cannot contain multi-byte
// sequences.
func IsASCII(data []byte) bool {
	return FirstNonASCII(data) == -1
}

// FirstNonASCII returns the index of the first byte >= 0x80 in data, or
// -1 if data is all ASCII. Eight bytes are tested per step via a
// native-endian word load; recovering the byte index from the masked
// word counts from the low end on little-endian machines and from the
// high end on big-endian ones.
func FirstNonASCII(data []byte) int {
	i := 0
	for ; i+8 <= len(data); i += 8 {
		word := *(*uint64)(unsafe.Pointer(&data[i]))
		if m := word & hi8; m != 0 {
			if cpu.IsBigEndian {
				return i + bits.LeadingZeros64(m)/8
			}
			return i + bits.TrailingZeros64(m)/8
		}
	}
	for ; i < len(data); i++ {
		if data[i] >= 0x80 {
			return i
		}
	}
	return -1
}
