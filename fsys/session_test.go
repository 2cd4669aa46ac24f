package fsys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionCloseClosesDescriptors(t *testing.T) {
	fs := mustMount(t, 2048)
	sess, err := fs.NewSession(nil, nil)
	require.NoError(t, err)

	require.NoError(t, fs.Create(sess, "/f", 0, false))
	f, err := fs.Open(sess, "/f")
	require.NoError(t, err)

	fd := sess.allocFD(&descriptor{file: f})
	require.GreaterOrEqual(t, fd, 2)

	require.NoError(t, sess.Close())
	require.Empty(t, sess.fds)
}

func TestSessionAllocFDSkipsReserved(t *testing.T) {
	fs := mustMount(t, 2048)
	sess, err := fs.NewSession(nil, nil)
	require.NoError(t, err)
	defer sess.Close()

	fd1 := sess.allocFD(&descriptor{})
	fd2 := sess.allocFD(&descriptor{})
	require.NotEqual(t, 0, fd1)
	require.NotEqual(t, 1, fd1)
	require.NotEqual(t, fd1, fd2)
}
