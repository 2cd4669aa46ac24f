package fsys

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDirEntryMarshalRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		e    dirEntry
	}{
		{"in use", dirEntry{inUse: true, name: "hello", sector: 42}},
		{"free slot", dirEntry{inUse: false, name: "", sector: 0}},
		{"max length name", dirEntry{inUse: true, name: "thirteenchars", sector: 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := unmarshalDirEntry(tt.e.marshal())
			require.Equal(t, tt.e, got)
		})
	}
}

func TestDirAddAndLookup(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	root, err := fs.dirOpenRoot()
	require.NoError(t, err)
	defer fs.dirClose(root) //nolint:errcheck

	require.NoError(t, fs.Create(sess, "/child", 0, false))

	_, ok, err := fs.dirLookup(root, "child")
	require.NoError(t, err)
	require.True(t, ok)

	err = fs.dirAdd(root, "child", 99)
	require.ErrorIs(t, err, ErrExists)

	err = fs.dirAdd(root, "", 99)
	require.ErrorIs(t, err, ErrInvalidName)

	longName := "this-name-is-way-too-long-for-one-entry"
	err = fs.dirAdd(root, longName, 99)
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestDirRemoveReusesFreedSlot(t *testing.T) {
	fs := mustMount(t, 2048)
	sess := fs.Boot()

	require.NoError(t, fs.Create(sess, "/a", 0, false))
	before := fs.Boot()
	_ = before
	require.NoError(t, fs.Remove(sess, "/a"))

	root, err := fs.dirOpenRoot()
	require.NoError(t, err)
	defer fs.dirClose(root) //nolint:errcheck
	countAfterRemove := fs.dirEntryCount(root)

	require.NoError(t, fs.Create(sess, "/b", 0, false))
	root2, err := fs.dirOpenRoot()
	require.NoError(t, err)
	defer fs.dirClose(root2) //nolint:errcheck
	require.Equal(t, countAfterRemove, fs.dirEntryCount(root2), "reusing a, freed slot shouldn't grow the directory")

	// Slots 0 and 1 hold "." and ".."; "a" was added at slot 2, so "b" must
	// land there too once that slot is freed.
	e, err := fs.readDirEntry(root2, 2)
	require.NoError(t, err)
	require.Equal(t, "b", e.name)
}
