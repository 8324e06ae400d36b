package arena

import "unsafe"

// Statistics is a point-in-time snapshot of an arena's bookkeeping. It
// is raw counters, not a formatted report — callers that want a
// human-readable dump build it on top of this.
type Statistics struct {
	HeapGrows  int     // number of times the heap source was asked to grow
	LiveBlocks int     // currently allocated blocks
	LiveBytes  uintptr // currently allocated bytes, header/footer included
	FreeBlocks int     // blocks reachable from some free list
	FreeBytes  uintptr // free bytes, header/footer included
}

// Stats reports a snapshot of the default arena. See (*Arena).Stats.
func Stats() Statistics { return Default.Stats() }

// Stats walks every block exactly once, tallying it as live or free.
// O(n) in the block count; meant for diagnostics and tests, not the
// allocation hot path (see arena.go's walk).
func (a *Arena) Stats() Statistics {
	st := Statistics{HeapGrows: a.stat.heapGrows}
	a.walk(func(b unsafe.Pointer) {
		if isAlloc(b) {
			st.LiveBlocks++
			st.LiveBytes += size(b)
		} else {
			st.FreeBlocks++
			st.FreeBytes += size(b)
		}
	})
	return st
}
