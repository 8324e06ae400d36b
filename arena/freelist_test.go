package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// makeFreeBlock allocates a standalone byte buffer big enough to hold a
// block header, footer, and fwd/back links, and writes a free header of
// exactly sz bytes into it. The buffer is never returned to any heap
// source; it exists only so insert/remove/unlink have real memory to
// read and write links into.
func makeFreeBlock(t *testing.T, sz uintptr) unsafe.Pointer {
	t.Helper()
	require.GreaterOrEqual(t, sz, uintptr(minBlock))
	buf := make([]byte, sz)
	b := unsafe.Pointer(&buf[0])
	writeWord(b, sz)
	syncFooter(b)
	return b
}

func TestFreeListsInsertUnsortedIsLIFO(t *testing.T) {
	var l freeLists
	b1 := makeFreeBlock(t, minBlock)
	b2 := makeFreeBlock(t, minBlock)
	b3 := makeFreeBlock(t, minBlock)

	l.insert(b1, true)
	l.insert(b2, true)
	l.insert(b3, true)

	require.Equal(t, b3, l[0])
	require.Equal(t, b2, fwdLink(b3))
	require.Equal(t, b1, fwdLink(b2))
	require.Nil(t, fwdLink(b1))

	require.Nil(t, backLink(b3))
	require.Equal(t, b3, backLink(b2))
	require.Equal(t, b2, backLink(b1))

	for _, b := range []unsafe.Pointer{b1, b2, b3} {
		require.False(t, isAlloc(b))
		require.False(t, isQuick(b))
	}
}

func TestFreeListsInsertBySizeClass(t *testing.T) {
	var l freeLists
	small := makeFreeBlock(t, 32)
	large := makeFreeBlock(t, 4096)

	l.insert(small, false)
	l.insert(large, false)

	require.Equal(t, small, l[classOf(32)])
	require.Equal(t, large, l[classOf(4096)])
	require.NotEqual(t, classOf(32), classOf(4096))
}

func TestFreeListsRemoveMarksAllocAndUnlinks(t *testing.T) {
	var l freeLists
	b1 := makeFreeBlock(t, minBlock)
	b2 := makeFreeBlock(t, minBlock)
	b3 := makeFreeBlock(t, minBlock)
	l.insert(b1, true)
	l.insert(b2, true)
	l.insert(b3, true) // list: b3 -> b2 -> b1

	l.remove(b2)

	require.True(t, isAlloc(b2), "remove must mark the detached block allocated")
	require.Equal(t, readWord(b2), readWord(footerOf(b2)), "remove must resync the footer")

	require.Equal(t, b3, l[0])
	require.Equal(t, b1, fwdLink(b3))
	require.Equal(t, b3, backLink(b1))
}

func TestFreeListsRemoveHead(t *testing.T) {
	var l freeLists
	b1 := makeFreeBlock(t, minBlock)
	b2 := makeFreeBlock(t, minBlock)
	l.insert(b1, true)
	l.insert(b2, true) // list: b2 -> b1

	l.remove(b2)

	require.Equal(t, b1, l[0])
	require.Nil(t, backLink(b1))
	require.True(t, isAlloc(b2))
}

func TestFreeListsUnlinkLeavesFlagsAlone(t *testing.T) {
	var l freeLists
	b1 := makeFreeBlock(t, minBlock)
	b2 := makeFreeBlock(t, minBlock)
	l.insert(b1, true)
	l.insert(b2, true) // list: b2 -> b1

	l.unlink(b2)

	require.False(t, isAlloc(b2), "unlink must not touch ALLOC, unlike remove")
	require.Equal(t, b1, l[0])
	require.Nil(t, backLink(b1))
}

func TestFreeListsUnlinkTail(t *testing.T) {
	var l freeLists
	b1 := makeFreeBlock(t, minBlock)
	b2 := makeFreeBlock(t, minBlock)
	l.insert(b1, true)
	l.insert(b2, true) // list: b2 -> b1

	l.unlink(b1)

	require.Equal(t, b2, l[0])
	require.Nil(t, fwdLink(b2))
}

func TestFreeListsUnlinkOnlyMember(t *testing.T) {
	var l freeLists
	b := makeFreeBlock(t, minBlock)
	l.insert(b, false)

	idx := classOf(size(b))
	l.unlink(b)

	require.Nil(t, l[idx])
}
