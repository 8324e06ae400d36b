package arena

import "unsafe"

// freeLists is the 75-entry array holding the allocator's whole picture
// of free memory: index 0 is the unsorted list, the rest are size-class
// lists. Each entry is a nullable LIFO doubly-linked list head.
//
// This generalizes unsafex/malloc/buddy.go's freeLists [][]int (a slice
// of free offsets per order) to intrusive links stored in the blocks
// themselves: buddy's representation works because every block in a
// given order-indexed list is the same size, so removing one just means
// popping the slice. Here, L[0] and the large power-of-two classes
// (L[63..74]) hold blocks of different sizes, and findBlock's stage A
// needs to remove an arbitrary block from the middle of L[0] in O(1),
// which a slice-of-offsets cannot do without a linear scan.
type freeLists [numClasses]unsafe.Pointer

// insert prepends b to L[0] (if unsorted) or to b's size class, clearing
// its ALLOC/QUICK bits and syncing the footer first.
func (l *freeLists) insert(b unsafe.Pointer, unsorted bool) {
	markFree(b)
	markUnquick(b)
	syncFooter(b)

	idx := 0
	if !unsorted {
		idx = classOf(size(b))
	}

	head := l[idx]
	setBackLink(b, nil)
	setFwdLink(b, head)
	if head != nil {
		setBackLink(head, b)
	}
	l[idx] = b
}

// remove unlinks b from whichever list currently holds it and marks it
// allocated — the form every caller outside this file wants, since
// taking a block out of a free list is always immediately followed by
// claiming it. See unlink for the variant used internally by coalesce.
func (l *freeLists) remove(b unsafe.Pointer) {
	l.unlink(b)
	markAlloc(b)
	markUnquick(b)
	syncFooter(b)
}

// unlink is remove's list-surgery half with no flag changes: b's
// ALLOC/QUICK bits and footer are left exactly as found. coalesce needs
// this distinction: when it absorbs a free block that turns out not to
// be the survivor, it must detach the block's list node without
// asserting anything about its data, since that data is about to be
// superseded by a header/footer rewrite on a different address (or, in
// the no-merge case, isn't superseded at all and must still read back
// as free).
//
// Membership is not tracked explicitly: if b has no predecessor, it can
// only be a head of L[0] or L[classOf(size(b))], so both are checked;
// otherwise the ordinary doubly-linked unlink applies.
func (l *freeLists) unlink(b unsafe.Pointer) {
	prev := backLink(b)
	next := fwdLink(b)

	if prev == nil {
		if l[0] == b {
			l[0] = next
		} else if idx := classOf(size(b)); l[idx] == b {
			l[idx] = next
		}
	} else {
		setFwdLink(prev, next)
	}

	if next != nil {
		setBackLink(next, prev)
	}
}
