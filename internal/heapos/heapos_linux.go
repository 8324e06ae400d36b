//go:build linux

package heapos

import (
	"fmt"
	"syscall"
	"unsafe"
)

// mmapSource reserves reserveSize bytes of address space up front with
// PROT_NONE (no physical pages, no commit charge) and commits pages onto
// the front of that reservation as Grow advances the high-water mark.
//
// This mirrors the way internal/epoll and internal/iouring in this
// codebase reach for the stdlib syscall package directly for Linux-only
// primitives rather than golang.org/x/sys/unix.
type mmapSource struct {
	base unsafe.Pointer
	used uintptr
}

// New reserves the backing address space and returns a ready HeapSource.
func New() (HeapSource, error) {
	b, err := syscall.Mmap(-1, 0, reserveSize,
		syscall.PROT_NONE, syscall.MAP_PRIVATE|syscall.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("heapos: reserve %d bytes: %w", reserveSize, err)
	}
	return &mmapSource{base: unsafe.Pointer(&b[0])}, nil
}

func (s *mmapSource) Base() unsafe.Pointer {
	return s.base
}

func (s *mmapSource) Grow(delta uintptr) (unsafe.Pointer, error) {
	old := unsafe.Add(s.base, s.used)
	if delta == 0 {
		return old, nil
	}
	if s.used+delta > reserveSize {
		return nil, ErrNoMemory
	}

	// mprotect(2) needs a page-aligned start, so commit from the start of
	// the page holding the old break; any already-writable part of that
	// page is simply re-protected as writable.
	start := s.used &^ (uintptr(syscall.Getpagesize()) - 1)
	region := unsafe.Slice((*byte)(unsafe.Add(s.base, start)), int(s.used+delta-start))
	if err := syscall.Mprotect(region, syscall.PROT_READ|syscall.PROT_WRITE); err != nil {
		return nil, fmt.Errorf("heapos: commit %d bytes: %w", delta, err)
	}

	s.used += delta
	return old, nil
}
