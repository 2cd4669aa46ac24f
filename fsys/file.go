package fsys

import (
	"io"
	"io/fs"
	"time"
)

// File is a handle bound to one open inode: a byte position and a
// write-deny flag. Positions are independent across handles to the same
// inode, matching spec.md's "File handle" data model.
type File struct {
	fsys   *FileSystem
	inode  *openInode
	pos    int64
	denied bool
	closed bool
}

// newFile wraps oi as a file handle positioned at the start.
func (fs *FileSystem) newFile(oi *openInode) *File {
	return &File{fsys: fs, inode: oi}
}

// Read reads up to len(p) bytes starting at the handle's current position
// and advances it by the number of bytes read.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	n, err := f.fsys.inodeReadAt(f.inode, p, f.pos)
	f.pos += int64(n)
	if err != nil {
		return n, err
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// ReadAt reads len(p) bytes at the given absolute offset without disturbing
// the handle's position, as io.ReaderAt requires.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	n, err := f.fsys.inodeReadAt(f.inode, p, off)
	if err == nil && n < len(p) {
		err = io.EOF
	}
	return n, err
}

// Write writes len(p) bytes starting at the handle's current position,
// growing the file if necessary, and advances the position. Returns 0 with
// no error if writes are currently denied (spec.md error kind 6).
func (f *File) Write(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	n, err := f.fsys.inodeWriteAt(f.inode, p, f.pos)
	f.pos += int64(n)
	return n, err
}

// Seek repositions the handle per io.Seeker semantics, against the file's
// current length for io.SeekEnd.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, ErrClosed
	}
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		base = f.fsys.inodeLength(f.inode)
	default:
		return 0, ErrInvalidArgument
	}
	newPos := base + offset
	if newPos < 0 {
		return 0, ErrInvalidArgument
	}
	f.pos = newPos
	return f.pos, nil
}

// Tell returns the handle's current position without altering it.
func (f *File) Tell() int64 { return f.pos }

// Length returns the file's current size in bytes.
func (f *File) Length() int64 { return f.fsys.inodeLength(f.inode) }

// Inumber returns the inode sector number backing this handle.
func (f *File) Inumber() uint32 { return f.fsys.inodeNumber(f.inode) }

// IsDir reports whether the handle's inode backs a directory.
func (f *File) IsDir() bool { return f.inode.disk.isDir }

// DenyWrite and AllowWrite implement spec.md's deny-write mechanism: a
// process holding an executable open can prevent concurrent overwrite.
func (f *File) DenyWrite() {
	if f.denied {
		return
	}
	f.fsys.denyWrite(f.inode)
	f.denied = true
}

func (f *File) AllowWrite() {
	if !f.denied {
		return
	}
	f.fsys.allowWrite(f.inode)
	f.denied = false
}

// Close releases the handle's reference on its underlying inode. Closing
// twice is a no-op, matching "close ignores a null pointer" in the source.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.denied {
		f.fsys.allowWrite(f.inode)
	}
	return f.fsys.inodeClose(f.inode)
}

// LookupChild looks up name as a direct child of a directory handle,
// without any path resolution, returning a new handle for it if found. This
// is the primitive an inode-addressed caller (e.g. a FUSE front-end, which
// is handed a parent inode number and a child name rather than a path)
// needs instead of Open.
func (f *File) LookupChild(name string) (*File, bool, error) {
	if !f.IsDir() {
		return nil, false, ErrNotDir
	}
	oi, ok, err := f.fsys.dirLookup(dirOpen(f.inode), name)
	if err != nil || !ok {
		return nil, false, err
	}
	return f.fsys.newFile(oi), true, nil
}

// CreateChild creates name as a new child of a directory handle and returns
// a handle to it, the inode-relative counterpart to FileSystem.Create.
func (f *File) CreateChild(name string, size int64, isDir bool) (*File, error) {
	if !f.IsDir() {
		return nil, ErrNotDir
	}
	if err := f.fsys.createIn(dirOpen(f.inode), name, size, isDir); err != nil {
		return nil, err
	}
	child, _, err := f.LookupChild(name)
	return child, err
}

// RemoveChild unlinks name from a directory handle, the inode-relative
// counterpart to FileSystem.Remove.
func (f *File) RemoveChild(name string) error {
	if !f.IsDir() {
		return ErrNotDir
	}
	return f.fsys.dirRemove(dirOpen(f.inode), name)
}

// ChildInfo describes one entry of a directory, as returned by Children.
type ChildInfo struct {
	Name    string
	Inumber uint32
	IsDir   bool
}

// Children lists a directory handle's entries, including "." and "..",
// each already resolved to its inode number and type — what a FUSE readdir
// callback needs, as opposed to the plain names ReadDir yields.
func (f *File) Children() ([]ChildInfo, error) {
	if !f.IsDir() {
		return nil, ErrNotDir
	}
	d := dirOpen(f.inode)
	count := f.fsys.dirEntryCount(d)
	var out []ChildInfo
	for i := 0; i < count; i++ {
		e, err := f.fsys.readDirEntry(d, i)
		if err != nil {
			return nil, err
		}
		if !e.inUse {
			continue
		}
		oi, err := f.fsys.inodeOpen(e.sector)
		if err != nil {
			return nil, err
		}
		isDir := oi.disk.isDir
		if err := f.fsys.inodeClose(oi); err != nil {
			return nil, err
		}
		out = append(out, ChildInfo{Name: e.name, Inumber: e.sector, IsDir: isDir})
	}
	return out, nil
}

// Stat satisfies fs.File/fs.ReadDirFile for callers that bridge this
// filesystem onto io/fs. The returned info has an empty name.
func (f *File) Stat() (fs.FileInfo, error) {
	return fileInfo{name: "", size: f.Length(), isDir: f.IsDir()}, nil
}

// ReadDir satisfies fs.ReadDirFile; it is only valid on a directory handle.
func (f *File) ReadDir(n int) ([]fs.DirEntry, error) {
	if !f.IsDir() {
		return nil, ErrNotDir
	}
	d := dirOpen(f.inode)
	d.readPos = 0
	var entries []fs.DirEntry
	for n <= 0 || len(entries) < n {
		name, ok, err := f.fsys.dirReaddir(d)
		if err != nil {
			return entries, err
		}
		if !ok {
			break
		}
		entries = append(entries, dirEntryInfo{name: name})
	}
	return entries, nil
}

type fileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (i fileInfo) Name() string { return i.name }
func (i fileInfo) Size() int64  { return i.size }

func (i fileInfo) Mode() fs.FileMode {
	if i.isDir {
		return fs.ModeDir
	}
	return 0
}

func (i fileInfo) ModTime() time.Time { return time.Time{} }
func (i fileInfo) IsDir() bool        { return i.isDir }
func (i fileInfo) Sys() any           { return nil }

type dirEntryInfo struct{ name string }

func (e dirEntryInfo) Name() string               { return e.name }
func (e dirEntryInfo) IsDir() bool                { return false }
func (e dirEntryInfo) Type() fs.FileMode          { return 0 }
func (e dirEntryInfo) Info() (fs.FileInfo, error) { return fileInfo{name: e.name}, nil }
