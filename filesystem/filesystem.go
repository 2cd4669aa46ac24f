// Package filesystem provides the generic interfaces a mounted filesystem
// implementation satisfies, independent of the on-disk format backing it.
package filesystem

import (
	"errors"
	"os"
)

var (
	ErrNotSupported       = errors.New("method not supported by this filesystem")
	ErrReadonlyFilesystem = errors.New("read-only filesystem")
)

// FileSystem is a reference to a single mounted filesystem.
//
// This is deliberately smaller than the interface it was trimmed from: it
// omits Mknod/Link/Symlink/Chmod/Chown/Rename, since this filesystem format
// has no notion of device nodes, hard or symbolic links, permission bits, or
// rename, and a caller probing for those via a type assertion should get a
// compile-time answer rather than a runtime ErrNotSupported.
type FileSystem interface {
	// Type returns the type of filesystem.
	Type() Type
	// Mkdir makes a directory.
	Mkdir(pathname string) error
	// ReadDir reads the contents of a directory.
	ReadDir(pathname string) ([]os.FileInfo, error)
	// OpenFile opens a handle to read or write to a file.
	OpenFile(pathname string, flag int) (File, error)
	// Remove removes the named file or empty directory.
	Remove(pathname string) error
	// Label gets the label for the filesystem, or "" if none.
	Label() string
	// SetLabel changes the label on the filesystem.
	SetLabel(label string) error
}

// Type represents the type of filesystem found on a disk.
type Type int

const (
	// TypeGofs is this package's own inode-based teaching filesystem.
	TypeGofs Type = iota
)
