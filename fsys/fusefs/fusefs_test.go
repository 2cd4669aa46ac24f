package fusefs

import (
	"syscall"
	"testing"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/stretchr/testify/require"

	"github.com/tholloway/gofs/fsys"
)

func TestSectorInodeIDRoundTrip(t *testing.T) {
	for _, s := range []uint32{1, 2, 4096} {
		require.Equal(t, s, sector(inodeID(s)))
	}
}

func TestRootInodeIDMatchesRootDirSector(t *testing.T) {
	require.Equal(t, fsys.RootDirSector, sector(fuseops.RootInodeID))
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"not found", fsys.ErrNotFound, fuse.ENOENT},
		{"exists", fsys.ErrExists, syscall.EEXIST},
		{"not empty", fsys.ErrNotEmpty, fuse.ENOTEMPTY},
		{"not dir", fsys.ErrNotDir, fuse.EIO},
		{"no space", fsys.ErrNoSpace, syscall.ENOSPC},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, translate(tt.in))
		})
	}
}

func TestAttrsForFileAndDir(t *testing.T) {
	dev := fsys.NewMemDevice(2048)
	vol, err := fsys.Mount(dev, true)
	require.NoError(t, err)
	defer vol.Close() //nolint:errcheck
	sess := vol.Boot()

	require.NoError(t, vol.Create(sess, "/f", 0, false))
	f, err := vol.Open(sess, "/f")
	require.NoError(t, err)
	defer f.Close()

	adapter := New(vol, 1000, 1000)
	attrs := adapter.attrsFor(f)
	require.False(t, attrs.Mode.IsDir())
	require.Equal(t, uint32(1000), attrs.Uid)
	require.Equal(t, uint32(1000), attrs.Gid)

	root, err := vol.Open(sess, "/")
	require.NoError(t, err)
	defer root.Close()
	rootAttrs := adapter.attrsFor(root)
	require.True(t, rootAttrs.Mode.IsDir())
}

func TestCheckInvariantsCatchesOverlap(t *testing.T) {
	dev := fsys.NewMemDevice(2048)
	vol, err := fsys.Mount(dev, true)
	require.NoError(t, err)
	defer vol.Close() //nolint:errcheck

	adapter := New(vol, 0, 0)
	adapter.dirs[1] = nil
	adapter.files[1] = nil
	require.Panics(t, adapter.checkInvariants)
}
