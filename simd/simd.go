// Package simd provides the scanning primitives behind the regex
// engine's candidate-start filters: byte-class scans over the subject
// and SWAR (SIMD within a register) ASCII detection. Everything here is
// pure Go; stdlib bytes.IndexByte already dispatches to vectorized
// kernels where they exist.
package simd

import "bytes"

// Memchr returns the index of the first instance of needle in haystack,
// or -1 if needle is not present.
func Memchr(haystack []byte, needle byte) int {
	return bytes.IndexByte(haystack, needle)
}

// MemchrInTable returns the index of the first byte of haystack whose
// slot in table is set, or -1 if every byte's slot is clear.
func MemchrInTable(haystack []byte, table *[256]bool) int {
	for i, b := range haystack {
		if table[b] {
			return i
		}
	}
	return -1
}

// MemchrNotInTable returns the index of the first byte of haystack whose
// slot in table is clear, or -1 if every byte's slot is set.
func MemchrNotInTable(haystack []byte, table *[256]bool) int {
	for i, b := range haystack {
		if !table[b] {
			return i
		}
	}
	return -1
}
