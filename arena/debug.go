//go:build !arenadebug

package arena

// checkInvariants is a no-op in normal builds. Build with -tags
// arenadebug to enable the full consistency walk after every mutating
// call; since it walks the whole arena and every free list, it is never
// compiled into default builds.
func (a *Arena) checkInvariants() {}
