package arena

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassOfSmallOnlyOddIndices(t *testing.T) {
	for s := uintptr(alignUnit); s < smallLargeBoundary; s += alignUnit {
		k := classOf(s)
		require.Equal(t, 1, k%2, "classOf(%d) = %d, want odd", s, k)
		require.Equal(t, int(s>>3)-1, k)
	}
}

func TestClassOfMonotonic(t *testing.T) {
	prev := classOf(alignUnit)
	for s := uintptr(alignUnit) + alignUnit; s < 8<<20; s += alignUnit {
		k := classOf(s)
		require.GreaterOrEqual(t, k, prev, "classOf regressed at size %d", s)
		prev = k
	}
}

func TestClassOfLargeBoundary(t *testing.T) {
	require.Equal(t, 63, classOf(smallLargeBoundary))
	require.Less(t, classOf(smallLargeBoundary), classOf(smallLargeBoundary*2))
	require.Equal(t, numClasses-1, classOf(^uintptr(0)))
}
