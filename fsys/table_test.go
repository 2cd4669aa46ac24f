package fsys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenInodeDedupsBySector(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	require.NoError(t, fs.Create(sess, "/f", 0, false))
	a, err := fs.Open(sess, "/f")
	require.NoError(t, err)
	b, err := fs.Open(sess, "/f")
	require.NoError(t, err)

	require.Same(t, a.inode, b.inode, "both handles must share the one open-inode record")
	require.Equal(t, 2, a.inode.openCount)

	require.NoError(t, a.Close())
	require.Equal(t, 1, b.inode.openCount)
	require.NoError(t, b.Close())
}

func TestDenyWriteInvariantPanics(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	require.NoError(t, fs.Create(sess, "/f", 0, false))
	f, err := fs.Open(sess, "/f")
	require.NoError(t, err)
	defer f.Close()

	require.Panics(t, func() {
		fs.allowWrite(f.inode)
	})
}

func TestForgetInodeClosesMatchingCount(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	require.NoError(t, fs.Create(sess, "/f", 0, false))
	f, err := fs.Open(sess, "/f")
	require.NoError(t, err)
	defer f.Close()

	extra, err := fs.OpenInode(f.Inumber())
	require.NoError(t, err)
	require.Equal(t, 2, f.inode.openCount)
	_ = extra

	require.NoError(t, fs.ForgetInode(f.Inumber(), 1))
	require.Equal(t, 1, f.inode.openCount)
}
