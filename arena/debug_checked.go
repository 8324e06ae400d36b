//go:build arenadebug

package arena

import (
	"fmt"
	"log"
	"unsafe"
)

// checkInvariants walks the arena and every free list, and panics on
// the first consistency violation it finds. Modeled on gopool.go's
// log-then-handle idiom (there, a recovered panic is logged; here, there
// is nothing to recover from, so the violation is logged and then raised
// as a fresh panic), adapted to a synchronous assertion rather than a
// background-goroutine recovery path.
func (a *Arena) checkInvariants() {
	if !a.initialized {
		return
	}

	base := a.heap.Base()

	var sum uintptr
	var prevFree bool
	for b := unsafe.Add(a.prologue, wordSize); b != a.epilogue; b = nextRaw(b) {
		if readWord(footerOf(b)) != readWord(b) {
			fail("block %p header %#x != footer %#x", b, readWord(b), readWord(footerOf(b)))
		}
		if uintptr(b)%wordSize != 0 {
			fail("block %p is not %d-byte aligned", b, wordSize)
		}
		if size(b)%alignUnit != 0 {
			fail("block %p size %d is not a multiple of %d", b, size(b), alignUnit)
		}
		if uintptr(b) < uintptr(base) {
			fail("block %p lies below the heap source's base %p", b, base)
		}

		free := !isAlloc(b)
		if free && prevFree {
			fail("block %p is free and immediately follows another free block", b)
		}
		prevFree = free

		sum += size(b)
	}

	if want := uintptr(a.epilogue) - uintptr(a.prologue) - wordSize; sum != want {
		fail("sum of block sizes %d != epilogue-prologue-W (%d)", sum, want)
	}

	a.checkFreeLists()
}

// checkFreeLists walks every list in the array: each member's ALLOC bit
// must be clear, and the back-link of a non-head member must point at
// the block that links forward to it.
func (a *Arena) checkFreeLists() {
	for idx := 0; idx < numClasses; idx++ {
		head := a.lists[idx]
		if head != nil && backLink(head) != nil {
			fail("list %d head %p has a non-nil back-link", idx, head)
		}
		var prev unsafe.Pointer
		for b := head; b != nil; b = fwdLink(b) {
			if isAlloc(b) {
				fail("block %p is on free list %d but ALLOC is set", b, idx)
			}
			if backLink(b) != prev {
				fail("block %p back-link %p != expected predecessor %p", b, backLink(b), prev)
			}
			prev = b
		}
	}
}

func fail(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Printf("ARENA: invariant violation: %s", msg)
	panic("arena: invariant violation: " + msg)
}
