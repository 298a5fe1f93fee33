// Package conv provides checked integer narrowing for the regex engine.
//
// The compiler stores instruction positions and AST indices in 16- and
// 32-bit fields behind hard caps; these helpers panic instead of
// silently wrapping when a cap check has been missed, since that is a
// programming error rather than a bad pattern.
package conv

import "math"

// IntToUint32 converts n to uint32, panicking if n is negative or does
// not fit.
func IntToUint32(n int) uint32 {
	// Compare as uint so the check also works on 32-bit platforms where
	// int cannot represent math.MaxUint32.
	if n < 0 || uint(n) > math.MaxUint32 {
		panic("integer overflow: int value out of uint32 range")
	}
	return uint32(n)
}

// IntToUint16 converts n to uint16, panicking if n is negative or does
// not fit.
func IntToUint16(n int) uint16 {
	if n < 0 || n > math.MaxUint16 {
		panic("integer overflow: int value out of uint16 range")
	}
	return uint16(n)
}
