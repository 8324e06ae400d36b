// Package heapos is the OS boundary for the arena package: it hands out
// a single, contiguous, never-moving, monotonically growing region of
// address space, the way sbrk(2) hands the C runtime the data segment.
//
// Go has no sbrk. Every implementation here fakes it with a big upfront
// virtual reservation and a high-water mark, so the address the arena
// hands to its callers never changes once allocated.
package heapos

import (
	"errors"
	"unsafe"
)

// ErrNoMemory is returned when the upfront virtual reservation backing a
// HeapSource has been exhausted. A real sbrk would fail the same way once
// the OS refuses to extend the data segment further.
var ErrNoMemory = errors.New("heapos: out of reserved address space")

// reserveSize is the size of the upfront virtual reservation on Linux. It
// is deliberately large (64 GiB) and deliberately never fully committed:
// it backs a PROT_NONE mapping, and nothing in it is physically touched
// until Grow extends the high-water mark over it. The portable fallback
// uses its own, smaller fallbackReserveSize instead.
const reserveSize = 64 << 30

// HeapSource grows a single managed region and reports where the old
// high end was, so the caller can place a fresh block there.
type HeapSource interface {
	// Grow extends the region by delta bytes, already aligned by the
	// caller to whatever granularity it needs. delta == 0 just reports
	// the current high end without growing.
	//
	// Returns the address of the byte immediately after the previous
	// high end (the old "break"). Fails with ErrNoMemory if the
	// reservation is exhausted.
	Grow(delta uintptr) (oldBreak unsafe.Pointer, err error)

	// Base returns the fixed low end of the region. Valid only after
	// the first successful Grow.
	Base() unsafe.Pointer
}
