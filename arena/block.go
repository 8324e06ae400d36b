package arena

import "unsafe"

// Every block, free or allocated, is a contiguous run of bytes inside the
// region handed out by internal/heapos, laid out as:
//
//	+--------+------------------------------------+--------+
//	| header | payload (allocated) or fwd/back link (free)  | footer |
//	+--------+------------------------------------+--------+
//
// header and footer are both one word and always equal. The block
// handle type used everywhere below is unsafe.Pointer pointing at the
// header word, mirroring the header-word-packing idiom already used by
// unsafex/malloc's buddy and bitmap allocators in this codebase.
const (
	wordSize  = 8               // W: fixed at 8 bytes on every platform this targets
	alignUnit = 2 * wordSize    // 2*W: every user pointer lands on this boundary
	minBlock  = 4 * wordSize    // header + fwd + back + footer
	flagMask  = uintptr(0x7)    // low 3 bits are reserved for flags; only 2 are used today
	allocBit  = uintptr(0x1)
	quickBit  = uintptr(0x2)
)

// readWord/writeWord centralize the one unsafe cast every other helper in
// this file builds on.
func readWord(p unsafe.Pointer) uintptr {
	return *(*uintptr)(p)
}

func writeWord(p unsafe.Pointer, v uintptr) {
	*(*uintptr)(p) = v
}

// size returns a block's total byte size, header and footer included.
func size(b unsafe.Pointer) uintptr {
	return readWord(b) &^ flagMask
}

func isAlloc(b unsafe.Pointer) bool {
	return readWord(b)&allocBit != 0
}

func isQuick(b unsafe.Pointer) bool {
	return readWord(b)&quickBit != 0
}

func markAlloc(b unsafe.Pointer) {
	writeWord(b, readWord(b)|allocBit)
}

func markFree(b unsafe.Pointer) {
	writeWord(b, readWord(b)&^allocBit)
}

func markQuick(b unsafe.Pointer) {
	writeWord(b, readWord(b)|quickBit)
}

func markUnquick(b unsafe.Pointer) {
	writeWord(b, readWord(b)&^quickBit)
}

// footerOf returns the address of b's footer word.
func footerOf(b unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(b, size(b)-wordSize)
}

// syncFooter copies the header verbatim onto the footer. Every
// mutation of a block's header bits below ends with this, except for
// sentinels, which have no footer.
func syncFooter(b unsafe.Pointer) {
	writeWord(footerOf(b), readWord(b))
}

// setSizeAndSync writes a new size into b's header, preserving its flag
// bits, then syncs the footer. Forbidden on sentinels (they have no
// footer, and their size is always fixed at 0).
func setSizeAndSync(b unsafe.Pointer, s uintptr) {
	writeWord(b, s|(readWord(b)&flagMask))
	syncFooter(b)
}

// setBoundary writes ALLOC|size=0 and does not touch a footer: prologue
// and epilogue sentinels have none.
func setBoundary(b unsafe.Pointer) {
	writeWord(b, allocBit)
}

// userOf/blockOf convert between the header address and the pointer
// handed to (or received from) the allocator's caller.
func userOf(b unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(b, wordSize)
}

func blockOf(u unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(u, -wordSize)
}

// isUserAligned reports whether u could possibly be a pointer this
// arena handed out: every live user pointer sits on an alignUnit
// boundary, so anything else is definitely not one.
func isUserAligned(u unsafe.Pointer) bool {
	return uintptr(u)%alignUnit == 0
}

// prevRaw finds the previous block by reading the footer immediately
// below b's header — the boundary tag that makes reverse traversal O(1).
func prevRaw(b unsafe.Pointer) unsafe.Pointer {
	footer := unsafe.Add(b, -wordSize)
	prevSize := readWord(footer) &^ flagMask
	return unsafe.Add(b, -prevSize)
}

// nextRaw walks forward by b's own size.
func nextRaw(b unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(b, size(b))
}

// alignUp rounds n up to the next multiple of to, which must be a power
// of two. Returns an overflowed (wrapped) result if n is within [to] of
// the uintptr maximum; callers are required to check for that themselves
// by comparing the result back against n.
func alignUp(n, to uintptr) uintptr {
	return (n + to - 1) &^ (to - 1)
}

// fwdLink/backLink address the two link words free blocks store in the
// space allocated blocks would use for payload.
func fwdLinkAddr(b unsafe.Pointer) unsafe.Pointer  { return unsafe.Add(b, wordSize) }
func backLinkAddr(b unsafe.Pointer) unsafe.Pointer { return unsafe.Add(b, 2*wordSize) }

func fwdLink(b unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(readWord(fwdLinkAddr(b)))
}

func setFwdLink(b, v unsafe.Pointer) {
	writeWord(fwdLinkAddr(b), uintptr(v))
}

func backLink(b unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(readWord(backLinkAddr(b)))
}

func setBackLink(b, v unsafe.Pointer) {
	writeWord(backLinkAddr(b), uintptr(v))
}
