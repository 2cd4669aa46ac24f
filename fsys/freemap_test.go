package fsys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFreeMapAllocateRelease(t *testing.T) {
	fm := newFreeMap(16)
	require.NoError(t, fm.markUsed(0))
	require.NoError(t, fm.markUsed(1))
	require.Equal(t, 14, fm.freeCount())

	sector, err := fm.allocate(1)
	require.NoError(t, err)
	require.Equal(t, uint32(2), sector)
	require.Equal(t, 13, fm.freeCount())

	require.NoError(t, fm.release(sector, 1))
	require.Equal(t, 14, fm.freeCount())
}

func TestFreeMapAllocateExhaustion(t *testing.T) {
	fm := newFreeMap(2)
	require.NoError(t, fm.markUsed(0))
	require.NoError(t, fm.markUsed(1))

	_, err := fm.allocate(1)
	require.ErrorIs(t, err, ErrNoSpace)
}

func TestFreeMapReleaseAlreadyFreePanics(t *testing.T) {
	fm := newFreeMap(4)
	require.Panics(t, func() {
		fm.release(0, 1) //nolint:errcheck
	})
}

func TestFreeMapDiskRoundTrip(t *testing.T) {
	fm := newFreeMap(32)
	require.NoError(t, fm.markUsed(0))
	require.NoError(t, fm.markUsed(5))

	encoded := fm.toDiskBytes()

	other := newFreeMap(32)
	other.loadDiskBytes(encoded)
	require.Equal(t, fm.freeCount(), other.freeCount())
	require.Equal(t, encoded, other.toDiskBytes())
}
