package fsys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDeviceReadWriteRoundTrip(t *testing.T) {
	dev := NewMemDevice(4)
	src := make([]byte, SectorSize)
	for i := range src {
		src[i] = byte(i)
	}
	require.NoError(t, dev.WriteSector(1, src))

	dst := make([]byte, SectorSize)
	require.NoError(t, dev.ReadSector(1, dst))
	require.Equal(t, src, dst)
}

func TestMemDeviceOutOfRange(t *testing.T) {
	dev := NewMemDevice(2)
	buf := make([]byte, SectorSize)
	require.Error(t, dev.ReadSector(5, buf))
	require.Error(t, dev.WriteSector(5, buf))
}

func TestMemDeviceSectorCount(t *testing.T) {
	dev := NewMemDevice(7)
	require.Equal(t, uint32(7), dev.SectorCount())
}
