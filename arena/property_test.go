package arena

import (
	"bytes"
	"sort"
	"testing"
	"unsafe"

	"github.com/bytedance/gopkg/lang/fastrand"
	"github.com/bytedance/gopkg/util/xxhash3"
	"github.com/stretchr/testify/require"
)

type liveAlloc struct {
	ptr      unsafe.Pointer
	size     int
	tag      byte
	checksum uint64
}

func stamp(p unsafe.Pointer, size int, tag byte) uint64 {
	buf := unsafe.Slice((*byte)(p), size)
	for i := range buf {
		buf[i] = tag
	}
	return xxhash3.Hash(buf)
}

func checksumOf(p unsafe.Pointer, size int) uint64 {
	return xxhash3.Hash(unsafe.Slice((*byte)(p), size))
}

// TestRandomizedAllocFreeIntegrity drives a long randomized sequence of
// Malloc/Free/Realloc calls. Every Realloc must preserve the prefix of
// the old payload; every 500 steps and at the end, it checks that every
// still-live allocation's payload is exactly what was last written to
// it and that no two live allocations' byte ranges overlap.
func TestRandomizedAllocFreeIntegrity(t *testing.T) {
	a := &Arena{}
	live := make([]liveAlloc, 0, 512)

	const iterations = 20000
	for i := 0; i < iterations; i++ {
		switch {
		case len(live) == 0 || fastrand.Intn(3) != 0:
			size := 1 + fastrand.Intn(8192)
			p := a.Malloc(size)
			require.NotNil(t, p, "Malloc(%d) failed at iteration %d", size, i)
			tag := byte(i)
			live = append(live, liveAlloc{ptr: p, size: size, tag: tag, checksum: stamp(p, size, tag)})

		case fastrand.Intn(2) == 0:
			idx := fastrand.Intn(len(live))
			a.Free(live[idx].ptr)
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]

		default:
			idx := fastrand.Intn(len(live))
			newSize := 1 + fastrand.Intn(8192)
			old := live[idx]
			p := a.Realloc(old.ptr, newSize)
			require.NotNil(t, p, "Realloc(%d) failed at iteration %d", newSize, i)

			keep := old.size
			if newSize < keep {
				keep = newSize
			}
			want := old.checksum
			if keep < old.size {
				want = xxhash3.Hash(bytes.Repeat([]byte{old.tag}, keep))
			}
			require.Equal(t, want, checksumOf(p, keep),
				"realloc at iteration %d lost or corrupted the preserved prefix", i)

			tag := byte(i)
			live[idx] = liveAlloc{ptr: p, size: newSize, tag: tag, checksum: stamp(p, newSize, tag)}
		}

		if i%500 == 0 {
			checkNoOverlap(t, live)
			checkAllChecksums(t, live)
		}
	}

	checkNoOverlap(t, live)
	checkAllChecksums(t, live)
}

func checkAllChecksums(t *testing.T, live []liveAlloc) {
	for _, la := range live {
		require.Equal(t, la.checksum, checksumOf(la.ptr, la.size), "live allocation corrupted")
	}
}

func checkNoOverlap(t *testing.T, live []liveAlloc) {
	type span struct{ lo, hi uintptr }
	spans := make([]span, len(live))
	for i, la := range live {
		spans[i] = span{uintptr(la.ptr), uintptr(la.ptr) + uintptr(la.size)}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].lo < spans[j].lo })
	for i := 1; i < len(spans); i++ {
		require.LessOrEqual(t, spans[i-1].hi, spans[i].lo, "live allocations overlap")
	}
}
