package arena

import (
	"math"
	"unsafe"
)

const exactSizeMax = smallLargeBoundary - 8 // 504: largest size an exact small class satisfies

// Malloc allocates at least size bytes and returns a 2*W-aligned pointer,
// or nil (with LastError set to ErrOutOfMemory on real failure; a
// non-positive size is simply rejected rather than treated as an error).
func (a *Arena) Malloc(size int) unsafe.Pointer {
	if err := a.initialize(); err != nil {
		a.lastErr = err
		return nil
	}
	if size <= 0 {
		return nil
	}

	request := uintptr(size)
	need := alignUp(request+alignUnit, alignUnit)
	if request > need {
		a.lastErr = ErrOutOfMemory
		return nil
	}

	b := a.findBlock(need)
	switch {
	case b != nil:
		a.lists.remove(b)
	default:
		tail := a.tailFreeBlock()
		if tail != nil {
			nb, err := a.growTail(tail, need)
			if err != nil {
				a.lastErr = err
				return nil
			}
			b = nb
		} else {
			nb, err := a.extendHeap(need)
			if err != nil {
				a.lastErr = err
				return nil
			}
			b = nb
		}
	}

	a.split(b, need)
	a.lastErr = nil
	a.checkInvariants()
	return userOf(b)
}

// Free coalesces ptr's block with any free neighbors and returns the
// result to the unsorted list. A nil ptr is a no-op.
func (a *Arena) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	if err := a.initialize(); err != nil {
		a.lastErr = err
		return
	}
	if !isUserAligned(ptr) {
		a.lastErr = ErrInvalidArgument
		return
	}
	merged := a.coalesce(blockOf(ptr))
	a.lists.insert(merged, true)
	a.checkInvariants()
}

// Calloc allocates a zeroed n*size region.
func (a *Arena) Calloc(n, size int) unsafe.Pointer {
	if err := a.initialize(); err != nil {
		a.lastErr = err
		return nil
	}
	if size != 0 && n > math.MaxInt/size {
		a.lastErr = ErrOutOfMemory
		return nil
	}

	total := n * size
	p := a.Malloc(total)
	if p == nil {
		return nil
	}

	buf := unsafe.Slice((*byte)(p), total)
	for i := range buf {
		buf[i] = 0
	}
	return p
}

// Realloc resizes ptr's allocation, preserving the first
// min(oldRequest, newSize) bytes. nil ptr behaves like Malloc; newSize
// == 0 frees ptr and returns nil.
func (a *Arena) Realloc(ptr unsafe.Pointer, newSize int) unsafe.Pointer {
	if err := a.initialize(); err != nil {
		a.lastErr = err
		return nil
	}
	if ptr == nil {
		return a.Malloc(newSize)
	}
	if newSize <= 0 {
		a.Free(ptr)
		return nil
	}
	if !isUserAligned(ptr) {
		a.lastErr = ErrInvalidArgument
		return nil
	}

	request := uintptr(newSize)
	need := alignUp(request+alignUnit, alignUnit)
	if request > need {
		a.lastErr = ErrOutOfMemory
		return nil
	}

	b := blockOf(ptr)
	originalUser := size(b) - alignUnit

	// b's own neighbors may have gone free while it was live — a
	// block's ALLOC bit says nothing about the blocks next to it — so
	// coalesce it first and make every decision below off the merged
	// size. Growing and shrinking are then the same "coalesce, then
	// see if it's still too small" shape; doing this once here instead
	// of separately in each branch also means a would-be free block
	// next to a shrinking allocation gets absorbed instead of left
	// sitting there while the shrunk remainder is carved off right
	// next to it.
	merged := a.coalesce(b)

	var result unsafe.Pointer
	if need > size(merged) {
		result = a.reallocGrow(merged, b, ptr, need, newSize, originalUser)
	} else {
		result = a.reallocShrink(merged, ptr, need, originalUser, request)
	}
	a.checkInvariants()
	return result
}

// tailFreeBlock returns the block immediately before the epilogue if it
// is free, else nil, so Malloc can grow the last block in place instead
// of extending the heap for a brand new one.
func (a *Arena) tailFreeBlock() unsafe.Pointer {
	if a.epilogue == unsafe.Add(a.prologue, wordSize) {
		return nil // empty arena, nothing before the epilogue but the prologue
	}
	tail := prevRaw(a.epilogue)
	if isAlloc(tail) {
		return nil
	}
	return tail
}

// growTail extends the heap by exactly what tail is short of need, then
// absorbs the freshly created block into tail in place, avoiding a
// brand-new block header for what is logically one growth.
func (a *Arena) growTail(tail unsafe.Pointer, need uintptr) (unsafe.Pointer, error) {
	grow := need - size(tail)
	nb, err := a.extendHeap(grow)
	if err != nil {
		return nil, err
	}
	a.lists.remove(tail)
	total := size(tail) + size(nb)
	writeWord(tail, total|allocBit)
	syncFooter(tail)
	return tail, nil
}

// split carves an exact-fit block of target bytes off the front of b and
// sends the remainder, if large enough to stand alone, to the unsorted
// list. Internal fragmentation is accepted when the remainder would be
// smaller than minBlock. Callers must ensure b's right edge isn't
// already adjacent to another free block before calling this — split
// never coalesces, it only carves.
func (a *Arena) split(b unsafe.Pointer, target uintptr) {
	remainder := size(b) - target
	if remainder < minBlock {
		return
	}
	setSizeAndSync(b, target)

	rem := unsafe.Add(b, target)
	writeWord(rem, remainder)
	a.lists.insert(rem, true)
}

// findBlock runs a two-stage search for a free block of at least need
// bytes: first it drains the unsorted list, coalescing each entry as it
// goes and returning the first one that's now big enough; if nothing
// there fits, it falls back to a segregated-fit walk over the
// size-class table.
func (a *Arena) findBlock(need uintptr) unsafe.Pointer {
	for a.lists[0] != nil {
		h := a.lists[0]
		orig := size(h)

		merged := a.coalesce(h)
		if size(merged) == orig {
			// No neighbor merged: h is still L[0]'s head (coalesce only
			// unlinks a block when it actually grows it), so detach it
			// ourselves before deciding its fate.
			a.lists.unlink(merged)
		}

		if size(merged) >= need {
			return merged
		}
		a.lists.insert(merged, false)
	}

	for k := classOf(need); k < numClasses; k++ {
		head := a.lists[k]
		if head == nil {
			continue
		}
		if need <= exactSizeMax {
			// Any block in a small exact class, or in any large class
			// (>= 512 bytes), already satisfies a need this small.
			return head
		}
		for cur := head; cur != nil; cur = fwdLink(cur) {
			if size(cur) >= need {
				return cur
			}
		}
	}
	return nil
}

// coalesce merges b with any immediately adjacent free, non-quick
// neighbors and returns the surviving block. Neighbors are always
// unlinked from their free list when absorbed; b itself is unlinked too,
// but only if it was free, and only via unlink rather than remove, so
// its ALLOC bit is left exactly as the caller found it. coalesce never
// allocates: the returned block's free/alloc state still reflects
// whatever b's own state was on entry, whether or not a merge happened
// and regardless of which of the three blocks ends up the survivor.
// Callers that need the result allocated (a realloc path, say) must
// mark it themselves afterward.
func (a *Arena) coalesce(b unsafe.Pointer) unsafe.Pointer {
	left := b
	newSize := size(b)

	// The word below b is the previous block's footer, or the prologue
	// sentinel (ALLOC, size 0) when b is the first block.
	if below := readWord(unsafe.Add(b, -wordSize)); below&(allocBit|quickBit) == 0 {
		prev := prevRaw(b)
		a.lists.unlink(prev)
		newSize += size(prev)
		left = prev
	}

	if next := nextRaw(b); !isAlloc(next) && !isQuick(next) {
		a.lists.unlink(next)
		newSize += size(next)
	}

	if newSize != size(b) {
		if !isAlloc(b) {
			a.lists.unlink(b)
		}
		setSizeAndSync(left, newSize)
	}
	return left
}

// reallocGrow handles the case where merged (already coalesced by the
// caller) is still too small for need. It tries, in order: use merged
// as-is if the merge alone made it big enough, extend the heap in place
// if merged happens to be the last block before the epilogue, and
// finally fall back to a brand-new allocation plus a copy.
func (a *Arena) reallocGrow(merged, origBlock, origPtr unsafe.Pointer, need uintptr, newSize int, originalUser uintptr) unsafe.Pointer {
	if size(merged) >= need {
		return a.finishResize(merged, origPtr, originalUser)
	}

	if nextRaw(merged) == a.epilogue {
		grow := need - size(merged)
		if nb, err := a.extendHeap(grow); err == nil {
			total := size(merged) + size(nb)
			writeWord(merged, total|allocBit)
			syncFooter(merged)
			return a.finishResize(merged, origPtr, originalUser)
		}
	}

	return a.reallocFresh(merged, origBlock, origPtr, originalUser, newSize)
}

// finishResize marks b allocated and, if coalescing absorbed a left
// neighbor and moved the surviving block to a lower address than the
// caller's original pointer, slides the preserved n bytes down to the
// new start.
func (a *Arena) finishResize(b, origPtr unsafe.Pointer, n uintptr) unsafe.Pointer {
	markAlloc(b)
	syncFooter(b)

	newUser := userOf(b)
	if newUser != origPtr {
		moveBytes(newUser, origPtr, n)
	}
	return newUser
}

// reallocFresh is the growth path's "allocate a brand-new block" branch.
// origBlock is the caller's block before coalescing; if the coalesce
// that produced merged absorbed a left neighbor, merged sits at a lower
// address than origBlock and origPtr no longer names a valid block
// boundary, so the merged region has to go back on the free list
// directly rather than through Free(origPtr) — Free would read garbage
// out of a header that's no longer there.
func (a *Arena) reallocFresh(merged, origBlock, origPtr unsafe.Pointer, originalUser uintptr, newSize int) unsafe.Pointer {
	movedLeft := merged != origBlock

	newUser := a.Malloc(newSize)
	if newUser == nil {
		a.lists.insert(merged, true)
		return nil
	}

	moveBytes(newUser, origPtr, originalUser)

	if movedLeft {
		a.lists.insert(merged, true)
	} else {
		a.Free(origPtr)
	}
	return newUser
}

// reallocShrink handles the case where merged (already coalesced by the
// caller, so it no longer has a free right neighbor to worry about) is
// at least as big as need. It marks merged allocated, slides the
// preserved prefix down if a left merge moved the block, and then
// splits off whatever's left over need.
func (a *Arena) reallocShrink(merged, origPtr unsafe.Pointer, need, originalUser, newRequest uintptr) unsafe.Pointer {
	keep := originalUser
	if newRequest < keep {
		keep = newRequest
	}

	newUser := a.finishResize(merged, origPtr, keep)

	a.split(merged, need)
	return newUser
}

// moveBytes copies n bytes from src to dst. Go's slice copy() is
// specified to behave correctly on overlapping backing memory, so this
// needs no direction check despite dst sometimes being below src: a
// leftward coalesce during either a grow or a shrink moves the live
// block to a lower address than the caller's original pointer.
func moveBytes(dst, src unsafe.Pointer, n uintptr) {
	if n == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), int(n)), unsafe.Slice((*byte)(src), int(n)))
}
