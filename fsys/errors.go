package fsys

import "errors"

// Sentinel errors returned by the core engine. Callers should compare with
// errors.Is rather than on message text.
var (
	// ErrInvalidName is returned for an empty path component or a name
	// longer than NameMax-1 bytes.
	ErrInvalidName = errors.New("fsys: invalid name")
	// ErrNotFound is returned when a path component does not exist.
	ErrNotFound = errors.New("fsys: no such file or directory")
	// ErrNotDir is returned when a non-leaf path component is not a directory.
	ErrNotDir = errors.New("fsys: not a directory")
	// ErrIsDir is returned when an operation that requires a regular file
	// is given a directory.
	ErrIsDir = errors.New("fsys: is a directory")
	// ErrExists is returned by Create/dirAdd when the name is already taken.
	ErrExists = errors.New("fsys: already exists")
	// ErrNoSpace is returned when the free-space map has no sector to give.
	ErrNoSpace = errors.New("fsys: no space left on device")
	// ErrNotEmpty is returned by Remove on a directory with live entries.
	ErrNotEmpty = errors.New("fsys: directory not empty")
	// ErrBadMagic is returned when a sector read as an inode fails the
	// magic-number check: either it was never an inode, or the disk is
	// corrupt. The engine does not attempt recovery; it only reports.
	ErrBadMagic = errors.New("fsys: bad inode magic")
	// ErrRemoved is returned when an operation targets a directory that has
	// already been unlinked from its parent.
	ErrRemoved = errors.New("fsys: directory has been removed")
	// ErrClosed is returned by operations on a closed file/session handle.
	ErrClosed = errors.New("fsys: use of closed handle")
	// ErrOutOfRange is returned when a logical block index or byte offset
	// falls beyond D + F + F*F data blocks.
	ErrOutOfRange = errors.New("fsys: beyond maximum file size")
	// ErrInvalidArgument is returned for a negative length or other
	// malformed argument caught before any disk mutation.
	ErrInvalidArgument = errors.New("fsys: invalid argument")
)
