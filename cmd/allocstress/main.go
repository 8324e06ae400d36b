// Command allocstress drives a randomized Malloc/Free/Realloc workload
// against the arena package and reports periodic Stats() snapshots, the
// same role a malloc-lab trace-driver plays for the allocator it exercises.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
	"github.com/bytedance/gopkg/lang/fastrand"

	"github.com/cloudwego/galloc/arena"
)

type liveAlloc struct {
	ptr  unsafe.Pointer
	size int
}

func main() {
	iterations := flag.Int("iterations", 1_000_000, "number of malloc/free/realloc operations to run")
	maxSize := flag.Int("max-size", 64<<10, "maximum single allocation size in bytes")
	maxLive := flag.Int("max-live", 4096, "maximum number of simultaneously live allocations")
	reportEvery := flag.Int("report-every", 100_000, "print a Stats() snapshot every N operations")
	flag.Parse()

	a := &arena.Arena{}
	live := make([]liveAlloc, 0, *maxLive)

	// scratch is the fill pattern copied into every fresh allocation below,
	// built with dirtmake the way bufiox/bytesbuf.go builds its own scratch
	// buffers — uninitialized on purpose, since every byte gets overwritten
	// before use.
	scratch := dirtmake.Bytes(*maxSize, *maxSize)
	for i := range scratch {
		scratch[i] = byte(i)
	}

	start := time.Now()
	for i := 0; i < *iterations; i++ {
		switch {
		case len(live) == 0 || (len(live) < *maxLive && fastrand.Intn(2) == 0):
			size := 1 + fastrand.Intn(*maxSize)
			p := a.Malloc(size)
			if p == nil {
				fmt.Fprintf(os.Stderr, "allocstress: Malloc(%d) failed at op %d: %v\n", size, i, a.LastError())
				os.Exit(1)
			}
			copy(unsafe.Slice((*byte)(p), size), scratch)
			live = append(live, liveAlloc{ptr: p, size: size})

		case fastrand.Intn(4) == 0:
			idx := fastrand.Intn(len(live))
			newSize := 1 + fastrand.Intn(*maxSize)
			p := a.Realloc(live[idx].ptr, newSize)
			if p == nil {
				fmt.Fprintf(os.Stderr, "allocstress: Realloc(%d) failed at op %d: %v\n", newSize, i, a.LastError())
				os.Exit(1)
			}
			live[idx] = liveAlloc{ptr: p, size: newSize}

		default:
			idx := fastrand.Intn(len(live))
			a.Free(live[idx].ptr)
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
		}

		if *reportEvery > 0 && i%*reportEvery == 0 {
			report(a, i)
		}
	}

	report(a, *iterations)
	fmt.Printf("allocstress: %d operations in %s\n", *iterations, time.Since(start))
}

func report(a *arena.Arena, op int) {
	s := a.Stats()
	fmt.Printf("op=%-9d heapGrows=%-4d live=%-6d (%d bytes) free=%-6d (%d bytes)\n",
		op, s.HeapGrows, s.LiveBlocks, s.LiveBytes, s.FreeBlocks, s.FreeBytes)
}
