package mem

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Heap region constants. The loader reserves the virtual address range
// [HeapStart, HeapStart+HeapLength) read-write before any allocation.
const (
	// HeapStart is the virtual base address of the program heap.
	HeapStart = uint64(0x3_0000_0000)

	// HeapLength is the size of the heap region in bytes.
	HeapLength = uint64(32 * 1024)

	// cursorSize is the size of the allocator's cursor word. The first 8
	// bytes of the heap region hold the cursor and are never handed out.
	cursorSize = uint64(8)
)

// ErrOutOfBounds is returned for addresses outside the heap region.
var ErrOutOfBounds = errors.New("address out of heap bounds")

// Allocator is a bump allocator over the fixed heap region. Allocations
// grow downward from the top of the region and are never individually
// reclaimed; memory is released only when the allocator is dropped.
//
// The cursor lives in-band as a little-endian uint64 in the first 8 bytes
// of the region, so a program linked against the same layout sees identical
// heap state. A cursor value of 0 means the allocator has not served a
// request yet; the first Calloc initializes it to HeapStart+HeapLength.
//
// The allocator is single-threaded, like the VM that hosts it.
type Allocator struct {
	region []byte
}

// NewAllocator creates an allocator over a fresh zero-filled heap region.
// Calloc relies on that zero fill and never re-zeroes returned storage, so
// an allocator must not be constructed over a recycled buffer.
func NewAllocator() *Allocator {
	return &Allocator{region: make([]byte, HeapLength)}
}

func (a *Allocator) cursor() uint64 {
	return binary.LittleEndian.Uint64(a.region[:cursorSize])
}

func (a *Allocator) setCursor(pos uint64) {
	binary.LittleEndian.PutUint64(a.region[:cursorSize], pos)
}

// Calloc allocates zero-initialized storage for nitems elements of size
// bytes, aligned down to the next power of two >= size. It returns the
// virtual base address of the allocation, or 0 on failure.
//
// A zero size fails unconditionally, as does a nitems*size product that
// wraps 64-bit arithmetic. A request larger than the remaining heap fails
// without moving the cursor; callers should treat a failed allocation as
// fatal rather than retry with smaller sizes.
func (a *Allocator) Calloc(nitems, size uint64) uint64 {
	pos := a.cursor()
	if pos == 0 {
		// First use, start at the top of the region.
		pos = HeapStart + HeapLength
	}

	bytes := nitems * size
	if size == 0 || nitems != bytes/size {
		// Overflow
		return 0
	}

	if pos < bytes {
		// Saturated
		pos = 0
	} else {
		pos -= bytes
	}

	// Round down to the next power of two >= size.
	align := size - 1
	align |= align >> 1
	align |= align >> 2
	align |= align >> 4
	align |= align >> 8
	align |= align >> 16
	align |= align >> 32
	align++
	pos &^= align - 1

	if pos < HeapStart+cursorSize {
		// Would overlap the cursor word. The cursor is left untouched, so
		// later smaller requests may still succeed.
		return 0
	}

	a.setCursor(pos)
	return pos
}

// Free deallocates memory previously returned by Calloc. It is a no-op:
// a bump allocator does not reclaim individual allocations.
func (a *Allocator) Free(addr uint64) {}

// Slice returns the backing bytes for size bytes of heap memory starting at
// the virtual address addr.
func (a *Allocator) Slice(addr, size uint64) ([]byte, error) {
	if addr < HeapStart || addr > HeapStart+HeapLength {
		return nil, fmt.Errorf("%w: 0x%x", ErrOutOfBounds, addr)
	}
	off := addr - HeapStart
	if size > HeapLength-off {
		return nil, fmt.Errorf("%w: 0x%x (size %d)", ErrOutOfBounds, addr, size)
	}
	return a.region[off : off+size], nil
}

// Region returns the raw heap region. The first 8 bytes belong to the
// allocator; callers must not write them.
func (a *Allocator) Region() []byte {
	return a.region
}
