package gofs

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tholloway/gofs/fsys"
)

func newVolume(t *testing.T) *Volume {
	t.Helper()
	dev := fsys.NewMemDevice(2048)
	fs, err := fsys.Mount(dev, true)
	require.NoError(t, err)
	t.Cleanup(func() { fs.Close() }) //nolint:errcheck
	return New(fs)
}

func TestVolumeMkdirAndReadDir(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.Mkdir("/dir"))

	infos, err := v.ReadDir("/")
	require.NoError(t, err)
	names := make([]string, 0, len(infos))
	for _, i := range infos {
		names = append(names, i.Name())
	}
	require.Contains(t, names, "dir")
}

func TestVolumeOpenFileCreatesOnce(t *testing.T) {
	v := newVolume(t)
	f, err := v.OpenFile("/f", os.O_CREATE)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Re-opening with O_CREATE on an existing file must not fail.
	f2, err := v.OpenFile("/f", os.O_CREATE)
	require.NoError(t, err)
	require.NoError(t, f2.Close())
}

func TestVolumeRemoveAndLabel(t *testing.T) {
	v := newVolume(t)
	require.NoError(t, v.Mkdir("/gone"))
	require.NoError(t, v.Remove("/gone"))

	require.NoError(t, v.SetLabel("testvol"))
	require.Equal(t, "testvol", v.Label())
}
