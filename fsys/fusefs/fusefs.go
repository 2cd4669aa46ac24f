// Package fusefs exposes a mounted volume as a FUSE file system, using
// fuseops.InodeID values equal to the underlying engine's inode sector
// numbers — the root directory's inode sector and fuseops.RootInodeID both
// happen to be 1, so no translation table is needed for that case either.
package fusefs

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"

	"github.com/tholloway/gofs/fsys"
)

// FS adapts a *fsys.FileSystem to fuseutil.FileSystem. Every op is served
// under a single lock: the underlying engine already assumes single-writer
// access to its directory structure (see fsys.FileSystem's own lock), and
// FUSE's concurrent op dispatch would otherwise race two ops that both
// touch the same directory.
type FS struct {
	fuseutil.NotImplementedFileSystem

	// When acquiring this lock, the caller must hold no fsys locks.
	mu syncutil.InvariantMutex

	fs    *fsys.FileSystem
	clock timeutil.Clock

	uid, gid uint32

	// INVARIANT: no handle appears in both dirs and files
	nextHandle fuseops.HandleID
	dirs       map[fuseops.HandleID]*fsys.File
	files      map[fuseops.HandleID]*fsys.File
}

// New wraps fs for mounting, reporting uid/gid as the owner of every inode.
// The caller is still responsible for fs.Close() after the mount is
// unmounted.
func New(fs *fsys.FileSystem, uid, gid uint32) *FS {
	out := &FS{
		fs:    fs,
		clock: timeutil.RealClock(),
		uid:   uid,
		gid:   gid,
		dirs:  make(map[fuseops.HandleID]*fsys.File),
		files: make(map[fuseops.HandleID]*fsys.File),
	}
	out.mu = syncutil.NewInvariantMutex(out.checkInvariants)
	return out
}

func (fs *FS) checkInvariants() {
	for h := range fs.dirs {
		if _, ok := fs.files[h]; ok {
			panic(fmt.Sprintf("handle %v live in both dirs and files", h))
		}
	}
}

func sector(id fuseops.InodeID) uint32      { return uint32(id) }
func inodeID(sector uint32) fuseops.InodeID { return fuseops.InodeID(sector) }

func (fs *FS) attrsFor(f *fsys.File) fuseops.InodeAttributes {
	mode := os.FileMode(0644)
	if f.IsDir() {
		mode = os.ModeDir | 0755
	}
	now := fs.clock.Now()
	return fuseops.InodeAttributes{
		Size:  uint64(f.Length()),
		Nlink: 1,
		Mode:  mode,
		Uid:   fs.uid,
		Gid:   fs.gid,
		Atime: now,
		Mtime: now,
		Ctime: now,
	}
}

func translate(err error) error {
	switch err {
	case nil:
		return nil
	case fsys.ErrNotFound:
		return fuse.ENOENT
	case fsys.ErrExists:
		return syscall.EEXIST
	case fsys.ErrNotEmpty:
		return fuse.ENOTEMPTY
	case fsys.ErrNotDir:
		return fuse.EIO
	case fsys.ErrNoSpace:
		return syscall.ENOSPC
	default:
		return err
	}
}

func (fs *FS) Init(op *fuseops.InitOp) {
	op.Respond(nil)
}

func (fs *FS) LookUpInode(op *fuseops.LookUpInodeOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var err error
	defer func() { op.Respond(err) }()

	parent, err := fs.fs.OpenInode(sector(op.Parent))
	if err != nil {
		err = translate(err)
		return
	}
	defer parent.Close()

	child, ok, lookErr := parent.LookupChild(op.Name)
	if lookErr != nil {
		err = translate(lookErr)
		return
	}
	if !ok {
		err = fuse.ENOENT
		return
	}
	defer child.Close()

	// Re-open so the returned entry holds its own reference, balanced by a
	// later ForgetInodeOp; child itself is released via the defer above.
	held, err := fs.fs.OpenInode(child.Inumber())
	if err != nil {
		err = translate(err)
		return
	}
	op.Entry.Child = inodeID(held.Inumber())
	op.Entry.Attributes = fs.attrsFor(held)
}

func (fs *FS) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var err error
	defer func() { op.Respond(err) }()

	f, openErr := fs.fs.OpenInode(sector(op.Inode))
	if openErr != nil {
		err = translate(openErr)
		return
	}
	defer f.Close()
	op.Attributes = fs.attrsFor(f)
}

func (fs *FS) ForgetInode(op *fuseops.ForgetInodeOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	err := translate(fs.fs.ForgetInode(sector(op.ID), 1))
	op.Respond(err)
}

func (fs *FS) MkDir(op *fuseops.MkDirOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var err error
	defer func() { op.Respond(err) }()

	parent, openErr := fs.fs.OpenInode(sector(op.Parent))
	if openErr != nil {
		err = translate(openErr)
		return
	}
	defer parent.Close()

	child, createErr := parent.CreateChild(op.Name, 0, true)
	if createErr != nil {
		err = translate(createErr)
		return
	}
	defer child.Close()

	held, openErr := fs.fs.OpenInode(child.Inumber())
	if openErr != nil {
		err = translate(openErr)
		return
	}
	op.Entry.Child = inodeID(held.Inumber())
	op.Entry.Attributes = fs.attrsFor(held)
}

func (fs *FS) CreateFile(op *fuseops.CreateFileOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var err error
	defer func() { op.Respond(err) }()

	parent, openErr := fs.fs.OpenInode(sector(op.Parent))
	if openErr != nil {
		err = translate(openErr)
		return
	}
	defer parent.Close()

	child, createErr := parent.CreateChild(op.Name, 0, false)
	if createErr != nil {
		err = translate(createErr)
		return
	}
	op.Entry.Child = inodeID(child.Inumber())
	op.Entry.Attributes = fs.attrsFor(child)

	op.Handle = fs.nextHandle
	fs.nextHandle++
	fs.files[op.Handle] = child
}

func (fs *FS) RmDir(op *fuseops.RmDirOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var err error
	defer func() { op.Respond(err) }()

	parent, openErr := fs.fs.OpenInode(sector(op.Parent))
	if openErr != nil {
		err = translate(openErr)
		return
	}
	defer parent.Close()
	err = translate(parent.RemoveChild(op.Name))
}

func (fs *FS) Unlink(op *fuseops.UnlinkOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var err error
	defer func() { op.Respond(err) }()

	parent, openErr := fs.fs.OpenInode(sector(op.Parent))
	if openErr != nil {
		err = translate(openErr)
		return
	}
	defer parent.Close()
	err = translate(parent.RemoveChild(op.Name))
}

func (fs *FS) OpenDir(op *fuseops.OpenDirOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var err error
	defer func() { op.Respond(err) }()

	d, openErr := fs.fs.OpenInode(sector(op.Inode))
	if openErr != nil {
		err = translate(openErr)
		return
	}
	if !d.IsDir() {
		d.Close() //nolint:errcheck
		err = fuse.EIO
		return
	}
	op.Handle = fs.nextHandle
	fs.nextHandle++
	fs.dirs[op.Handle] = d
}

func (fs *FS) ReadDir(op *fuseops.ReadDirOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var err error
	defer func() { op.Respond(err) }()

	d, ok := fs.dirs[op.Handle]
	if !ok {
		err = fuse.EIO
		return
	}
	children, listErr := d.Children()
	if listErr != nil {
		err = translate(listErr)
		return
	}
	if int(op.Offset) > len(children) {
		err = fuse.EIO
		return
	}
	for i, c := range children[op.Offset:] {
		typ := fuseutil.DT_File
		if c.IsDir {
			typ = fuseutil.DT_Directory
		}
		entry := fuseutil.Dirent{
			Offset: op.Offset + fuseops.DirOffset(i) + 1,
			Inode:  inodeID(c.Inumber),
			Name:   c.Name,
			Type:   typ,
		}
		old := len(op.Data)
		op.Data = fuseutil.AppendDirent(op.Data, entry)
		if len(op.Data) > op.Size {
			op.Data = op.Data[:old]
			break
		}
	}
}

func (fs *FS) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if d, ok := fs.dirs[op.Handle]; ok {
		d.Close() //nolint:errcheck
		delete(fs.dirs, op.Handle)
	}
	op.Respond(nil)
}

func (fs *FS) OpenFile(op *fuseops.OpenFileOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var err error
	defer func() { op.Respond(err) }()

	f, openErr := fs.fs.OpenInode(sector(op.Inode))
	if openErr != nil {
		err = translate(openErr)
		return
	}
	op.Handle = fs.nextHandle
	fs.nextHandle++
	fs.files[op.Handle] = f
}

func (fs *FS) ReadFile(op *fuseops.ReadFileOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var err error
	defer func() { op.Respond(err) }()

	f, ok := fs.files[op.Handle]
	if !ok {
		err = fuse.EIO
		return
	}
	op.Data = make([]byte, op.Size)
	n, readErr := f.ReadAt(op.Data, op.Offset)
	op.Data = op.Data[:n]
	if readErr != nil && readErr != io.EOF {
		err = translate(readErr)
	}
}

func (fs *FS) WriteFile(op *fuseops.WriteFileOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var err error
	defer func() { op.Respond(err) }()

	f, ok := fs.files[op.Handle]
	if !ok {
		err = fuse.EIO
		return
	}
	if _, seekErr := f.Seek(op.Offset, io.SeekStart); seekErr != nil {
		err = translate(seekErr)
		return
	}
	_, err = f.Write(op.Data)
	err = translate(err)
}

func (fs *FS) FlushFile(op *fuseops.FlushFileOp) {
	op.Respond(nil)
}

func (fs *FS) SyncFile(op *fuseops.SyncFileOp) {
	op.Respond(nil)
}

func (fs *FS) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if f, ok := fs.files[op.Handle]; ok {
		f.Close() //nolint:errcheck
		delete(fs.files, op.Handle)
	}
	op.Respond(nil)
}
