package fsys

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustMount(t *testing.T, sectors uint32) *FileSystem {
	t.Helper()
	dev := NewMemDevice(sectors)
	fs, err := Mount(dev, true)
	require.NoError(t, err)
	t.Cleanup(func() { fs.Close() }) //nolint:errcheck
	return fs
}

func TestFormatRootContents(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	root, err := fs.Open(sess, "/")
	require.NoError(t, err)
	defer root.Close()
	require.True(t, root.IsDir())

	entries, err := root.ReadDir(-1)
	require.NoError(t, err)
	require.Empty(t, entries, "only . and .. exist initially, and ReadDir skips them")

	children, err := root.Children()
	require.NoError(t, err)
	names := map[string]uint32{}
	for _, c := range children {
		names[c.Name] = c.Inumber
	}
	require.Equal(t, RootDirSector, names["."])
	require.Equal(t, RootDirSector, names[".."])
}

func TestLargeWriteAcrossIndirectBlocks(t *testing.T) {
	fs := mustMount(t, 4096)
	sess := fs.Boot()

	const size = 600 * 1024
	require.NoError(t, fs.Create(sess, "big", 0, false))
	f, err := fs.Open(sess, "big")
	require.NoError(t, err)
	defer f.Close()

	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	n, err := f.Write(data)
	require.NoError(t, err)
	require.Equal(t, size, n)
	require.Equal(t, int64(614400), f.Length())

	readBack := make([]byte, size)
	_, err = f.ReadAt(readBack, 0)
	require.NoError(t, err)
	require.Equal(t, data, readBack)
}

func TestNestedMkdirAndRelativeResolution(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	require.NoError(t, fs.Mkdir(sess, "/a"))
	require.NoError(t, fs.Mkdir(sess, "/a/b"))
	require.NoError(t, fs.Create(sess, "/a/b/leaf", 0, false))

	require.NoError(t, fs.Chdir(sess, "/a/b"))
	leaf, err := fs.Open(sess, "leaf")
	require.NoError(t, err)
	require.NoError(t, leaf.Close())

	// ".." from /a/b lands back in /a.
	sibling, err := fs.Open(sess, "../b/leaf")
	require.NoError(t, err)
	require.NoError(t, sibling.Close())

	require.NoError(t, fs.Chdir(sess, "/"))
}

func TestRemoveWhileOpen(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	require.NoError(t, fs.Create(sess, "/doomed", 4, false))
	f, err := fs.Open(sess, "/doomed")
	require.NoError(t, err)

	require.NoError(t, fs.Remove(sess, "/doomed"))

	_, err = fs.Open(sess, "/doomed")
	require.ErrorIs(t, err, ErrNotFound)

	// The still-open handle keeps working until it is closed.
	_, err = f.Write([]byte("data"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = fs.Open(sess, "/doomed")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestEmptyDirectoryRemovalRules(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	require.NoError(t, fs.Mkdir(sess, "/dir"))
	require.NoError(t, fs.Create(sess, "/dir/child", 0, false))

	err := fs.Remove(sess, "/dir")
	require.ErrorIs(t, err, ErrNotEmpty)

	require.NoError(t, fs.Remove(sess, "/dir/child"))
	require.NoError(t, fs.Remove(sess, "/dir"))

	_, err = fs.Open(sess, "/dir")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDenyWrite(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	require.NoError(t, fs.Create(sess, "/exe", 0, false))
	f, err := fs.Open(sess, "/exe")
	require.NoError(t, err)
	defer f.Close()

	f.DenyWrite()
	n, err := f.Write([]byte("nope"))
	require.NoError(t, err)
	require.Zero(t, n)

	f.AllowWrite()
	n, err = f.Write([]byte("now ok"))
	require.NoError(t, err)
	require.Equal(t, len("now ok"), n)
}

func TestCreateDuplicateNameFails(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	require.NoError(t, fs.Create(sess, "/f", 0, false))
	err := fs.Create(sess, "/f", 0, false)
	require.ErrorIs(t, err, ErrExists)
}

func TestOpenMissingParentFails(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	_, err := fs.Open(sess, "/missing/leaf")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSeekAndReadPastEOF(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	require.NoError(t, fs.Create(sess, "/f", 0, false))
	f, err := fs.Open(sess, "/f")
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)

	pos, err := f.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	require.Equal(t, int64(5), pos)

	buf := make([]byte, 4)
	n, err := f.Read(buf)
	require.Equal(t, io.EOF, err)
	require.Zero(t, n)
}

func TestCloseIsIdempotent(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	require.NoError(t, fs.Create(sess, "/f", 0, false))
	f, err := fs.Open(sess, "/f")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
}

func TestRemountPreservesContents(t *testing.T) {
	dev := NewMemDevice(2048)
	fs, err := Mount(dev, true)
	require.NoError(t, err)
	sess := fs.Boot()
	require.NoError(t, fs.Create(sess, "/persisted", 0, false))
	f, err := fs.Open(sess, "/persisted")
	require.NoError(t, err)
	_, err = f.Write([]byte("durable"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, fs.Close())

	fs2, err := Mount(dev, false)
	require.NoError(t, err)
	defer fs2.Close() //nolint:errcheck
	sess2 := fs2.Boot()

	got, err := fs2.Open(sess2, "/persisted")
	require.NoError(t, err)
	defer got.Close()
	buf := make([]byte, 7)
	_, err = got.ReadAt(buf, 0)
	require.NoError(t, err)
	require.Equal(t, "durable", string(buf))
}
