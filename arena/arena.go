// Package arena implements a segregated-fit, boundary-tag-coalescing
// dynamic memory allocator over a single, process-lifetime, monotonically
// growing region of raw address space — a drop-in replacement for the
// malloc/free/calloc/realloc family in a single-threaded process.
//
// The engine has no concurrency control whatsoever: every exported
// function, on both the package default instance and a caller-owned
// *Arena, assumes single-threaded, call-ordered use, same as the C
// allocator it is meant to stand in for.
package arena

import (
	"fmt"
	"unsafe"

	"github.com/cloudwego/galloc/internal/heapos"
)

// Arena owns all of the allocator's mutable state: the raw region, the
// prologue/epilogue sentinels, and the free-list array. It is a struct
// rather than bare package globals so tests can run many isolated
// arenas side by side.
type Arena struct {
	heap heapos.HeapSource

	prologue unsafe.Pointer // fixed once initialized; 1-word ALLOC|size=0 sentinel
	epilogue unsafe.Pointer // moves on every extendHeap; same sentinel shape

	lists freeLists

	initialized bool
	lastErr     error

	stat stat
}

// stat accumulates the one counter that isn't cheap to recompute by
// walking the arena; Stats() derives the rest (live/free bytes and
// block counts) from a walk at call time. See arena/statistics.go.
type stat struct {
	heapGrows int
}

// Default is the package-wide instance backing the package-level
// Malloc/Free/Calloc/Realloc functions. Nothing stops a caller from
// constructing its own *Arena for an isolated heap (tests do exactly
// that), but the functions below forward to Default the same way a
// libc malloc shim forwards to one process-wide heap.
var Default = &Arena{}

// Malloc allocates size bytes on the default arena. See (*Arena).Malloc.
func Malloc(size int) unsafe.Pointer { return Default.Malloc(size) }

// Free releases ptr on the default arena. See (*Arena).Free.
func Free(ptr unsafe.Pointer) { Default.Free(ptr) }

// Calloc allocates a zeroed n*size region on the default arena.
func Calloc(n, size int) unsafe.Pointer { return Default.Calloc(n, size) }

// Realloc resizes ptr's allocation on the default arena.
func Realloc(ptr unsafe.Pointer, newSize int) unsafe.Pointer {
	return Default.Realloc(ptr, newSize)
}

// LastError reports the error from the most recent failed operation on
// the default arena, the single-threaded analogue of errno.
func LastError() error { return Default.LastError() }

// LastError reports the error from a's most recent failed operation.
func (a *Arena) LastError() error { return a.lastErr }

// initialize is idempotent and is the first thing every exported entry
// point on Arena calls, since the allocator may be invoked before
// anything else has had a chance to set it up.
func (a *Arena) initialize() error {
	if a.initialized {
		return nil
	}

	h, err := heapos.New()
	if err != nil {
		return fmt.Errorf("arena: acquire heap source: %w", err)
	}
	a.heap = h

	rawStart, err := h.Grow(0)
	if err != nil {
		return fmt.Errorf("arena: query initial break: %w", err)
	}

	pad := alignUp(uintptr(rawStart), alignUnit) - uintptr(rawStart)
	if _, err := h.Grow(pad + alignUnit); err != nil {
		return fmt.Errorf("arena: place sentinels: %w", err)
	}

	a.prologue = unsafe.Add(rawStart, pad)
	a.epilogue = unsafe.Add(a.prologue, wordSize)
	setBoundary(a.prologue)
	setBoundary(a.epilogue)

	a.initialized = true
	return nil
}

// extendHeap grows the arena by exactly delta bytes, which the caller
// has already aligned to alignUnit, and returns the header of the fresh
// ALLOC'd block created by overlaying the old epilogue: no alignment
// fixup is ever needed mid-arena because the epilogue always
// pre-reserves its own slot at the high end.
func (a *Arena) extendHeap(delta uintptr) (unsafe.Pointer, error) {
	oldBreak, err := a.heap.Grow(delta)
	if err != nil {
		return nil, ErrOutOfMemory
	}

	block := unsafe.Add(oldBreak, -wordSize) // the old epilogue's address
	writeWord(block, delta|allocBit)
	syncFooter(block)

	newEpilogue := unsafe.Add(block, delta)
	setBoundary(newEpilogue)
	a.epilogue = newEpilogue

	a.stat.heapGrows++
	return block, nil
}

// walk calls fn for every non-sentinel block from prologue to epilogue,
// in raw address order. Used by Stats and by the invariant checks in
// debug.go and the property tests; not on any allocation hot path.
func (a *Arena) walk(fn func(b unsafe.Pointer)) {
	if !a.initialized {
		return
	}
	for b := unsafe.Add(a.prologue, wordSize); b != a.epilogue; b = nextRaw(b) {
		fn(b)
	}
}
