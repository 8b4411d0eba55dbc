// Package mem implements the freestanding memory utilities used by Sand VM
// programs: byte-level primitives and a bump allocator over the fixed
// 32 KiB heap region.
//
// The primitives mirror the contracts of the C program SDK: a nil base is
// treated as a null pointer and causes an early return, and counts are
// trusted to fit the given regions. Out-of-region access is the caller's
// responsibility; the syscall layer bounds-checks through address
// translation before reaching this package.
package mem

import "unsafe"

// Copy copies n bytes from src to dst. The regions must not overlap; use
// Move when they might. If either slice is nil, no bytes are written.
func Copy(dst, src []byte, n int) {
	if dst == nil || src == nil {
		return
	}
	for i := 0; i < n; i++ {
		dst[i] = src[i]
	}
}

// Move copies n bytes from src to dst, permitting overlap. If either slice
// is nil or both start at the same address, no bytes are written. When dst
// starts below src the copy runs forward; otherwise it runs from index n-1
// down to 0, which is the order that keeps a trailing overlap intact.
func Move(dst, src []byte, n int) {
	if dst == nil || src == nil || n <= 0 {
		return
	}
	d := uintptr(unsafe.Pointer(&dst[0]))
	s := uintptr(unsafe.Pointer(&src[0]))
	switch {
	case d == s:
		return
	case d < s:
		for i := 0; i < n; i++ {
			dst[i] = src[i]
		}
	default:
		for i := n - 1; i >= 0; i-- {
			dst[i] = src[i]
		}
	}
}

// Compare compares the first n bytes of a and b. It returns 0 when they are
// equal, otherwise the difference a[i]-b[i] at the first differing index,
// computed as an unsigned 8-bit value (so a nonzero result is in 1..255).
// If either slice is nil the result is 1.
func Compare(a, b []byte, n int) int {
	if a == nil || b == nil {
		return 1
	}
	for i := 0; i < n; i++ {
		if diff := a[i] - b[i]; diff != 0 {
			return int(diff)
		}
	}
	return 0
}

// Fill writes n copies of the low 8 bits of c starting at dst. A nil dst is
// a no-op.
func Fill(dst []byte, c int, n int) {
	if dst == nil {
		return
	}
	for i := 0; i < n; i++ {
		dst[i] = byte(c)
	}
}

// Strlen returns the number of bytes preceding the first zero byte in s,
// checking four bytes per step. A nil s returns 0. If s holds no zero byte
// the scan stops at the slice bound and len(s) is returned.
func Strlen(s []byte) int {
	if s == nil {
		return 0
	}
	i := 0
	for ; i+4 <= len(s); i += 4 {
		if s[i] == 0 {
			return i
		}
		if s[i+1] == 0 {
			return i + 1
		}
		if s[i+2] == 0 {
			return i + 2
		}
		if s[i+3] == 0 {
			return i + 3
		}
	}
	for ; i < len(s); i++ {
		if s[i] == 0 {
			return i
		}
	}
	return len(s)
}
