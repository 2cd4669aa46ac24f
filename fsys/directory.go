package fsys

import (
	"bytes"
	"encoding/binary"
)

// NameMax is the longest name a directory entry can hold, zero-terminator
// included — i.e. the longest usable name is NameMax-1 bytes.
const NameMax = 14

// dirEntrySize is inUse(4) + name(NameMax) + pad(2) + sector(4) = 24 bytes,
// chosen for clean 4-byte alignment of every field.
const dirEntrySize = 4 + NameMax + 2 + 4

// dirEntry is one fixed-size record in a directory's data.
type dirEntry struct {
	inUse  bool
	name   string
	sector uint32
}

func (e *dirEntry) marshal() []byte {
	buf := make([]byte, dirEntrySize)
	inUse := uint32(0)
	if e.inUse {
		inUse = 1
	}
	binary.LittleEndian.PutUint32(buf[0:4], inUse)
	copy(buf[4:4+NameMax], e.name) // remaining bytes stay zero: the terminator
	binary.LittleEndian.PutUint32(buf[4+NameMax+2:4+NameMax+2+4], e.sector)
	return buf
}

func unmarshalDirEntry(buf []byte) dirEntry {
	inUse := binary.LittleEndian.Uint32(buf[0:4]) != 0
	nameBytes := buf[4 : 4+NameMax]
	if nul := bytes.IndexByte(nameBytes, 0); nul >= 0 {
		nameBytes = nameBytes[:nul]
	}
	sector := binary.LittleEndian.Uint32(buf[4+NameMax+2 : 4+NameMax+2+4])
	return dirEntry{inUse: inUse, name: string(nameBytes), sector: sector}
}

// directory is an open directory handle: an open inode plus the readdir
// cursor (a logical entry index, advanced by dirReaddir).
type directory struct {
	inode   *openInode
	readPos int
}

// dirEntryCapacityBytes is the data size to allocate for initialEntries
// directory entries.
func dirEntryCapacityBytes(initialEntries int) int64 {
	return int64(initialEntries) * dirEntrySize
}

// dirCreate creates an empty directory inode at sector, sized to hold
// initialEntries entries without needing to grow immediately.
func (fs *FileSystem) dirCreate(sector uint32, initialEntries int) error {
	return fs.inodeCreate(sector, dirEntryCapacityBytes(initialEntries), true)
}

// dirOpen wraps an already-open inode as a directory handle. The caller
// must already have verified oi.disk.isDir (dirOpen does not re-check, the
// same way the source's dir_open trusts its caller).
func dirOpen(oi *openInode) *directory {
	return &directory{inode: oi}
}

// dirOpenRoot opens the root directory.
func (fs *FileSystem) dirOpenRoot() (*directory, error) {
	oi, err := fs.inodeOpen(RootDirSector)
	if err != nil {
		return nil, err
	}
	return dirOpen(oi), nil
}

// dirClose releases d's underlying inode.
func (fs *FileSystem) dirClose(d *directory) error {
	return fs.inodeClose(d.inode)
}

func (fs *FileSystem) dirEntryCount(d *directory) int {
	return int(fs.inodeLength(d.inode) / dirEntrySize)
}

func (fs *FileSystem) readDirEntry(d *directory, index int) (dirEntry, error) {
	buf := make([]byte, dirEntrySize)
	n, err := fs.inodeReadAt(d.inode, buf, int64(index)*dirEntrySize)
	if err != nil {
		return dirEntry{}, err
	}
	if n != dirEntrySize {
		return dirEntry{}, nil
	}
	return unmarshalDirEntry(buf), nil
}

func (fs *FileSystem) writeDirEntry(d *directory, index int, e dirEntry) error {
	_, err := fs.inodeWriteAt(d.inode, e.marshal(), int64(index)*dirEntrySize)
	return err
}

// dirLookup does a linear scan of d's entries for name, opening and
// returning the child inode on a match.
func (fs *FileSystem) dirLookup(d *directory, name string) (*openInode, bool, error) {
	count := fs.dirEntryCount(d)
	for i := 0; i < count; i++ {
		e, err := fs.readDirEntry(d, i)
		if err != nil {
			return nil, false, err
		}
		if e.inUse && e.name == name {
			oi, err := fs.inodeOpen(e.sector)
			if err != nil {
				return nil, false, err
			}
			return oi, true, nil
		}
	}
	return nil, false, nil
}

// dirAdd adds an entry name -> childSector to d, failing if name is already
// present or exceeds NameMax-1 bytes. It reuses the first free (not in-use)
// slot if one exists, otherwise extends the directory file by one entry.
func (fs *FileSystem) dirAdd(d *directory, name string, childSector uint32) error {
	if name == "" || len(name) > NameMax-1 {
		return ErrInvalidName
	}
	count := fs.dirEntryCount(d)
	freeSlot := -1
	for i := 0; i < count; i++ {
		e, err := fs.readDirEntry(d, i)
		if err != nil {
			return err
		}
		if e.inUse && e.name == name {
			return ErrExists
		}
		if !e.inUse && freeSlot < 0 {
			freeSlot = i
		}
	}
	entry := dirEntry{inUse: true, name: name, sector: childSector}
	if freeSlot >= 0 {
		return fs.writeDirEntry(d, freeSlot, entry)
	}
	return fs.writeDirEntry(d, count, entry)
}

// dirRemove looks up name in d and, if present, marks its entry free and
// marks the target inode for deletion at last close. Removing a directory
// that still has entries other than "." and ".." fails with ErrNotEmpty.
func (fs *FileSystem) dirRemove(d *directory, name string) error {
	count := fs.dirEntryCount(d)
	for i := 0; i < count; i++ {
		e, err := fs.readDirEntry(d, i)
		if err != nil {
			return err
		}
		if !e.inUse || e.name != name {
			continue
		}
		target, err := fs.inodeOpen(e.sector)
		if err != nil {
			return err
		}
		if target.disk.isDir {
			empty, err := fs.dirIsEmpty(dirOpen(target))
			if err != nil {
				fs.inodeClose(target) //nolint:errcheck // best-effort on the error path
				return err
			}
			if !empty {
				fs.inodeClose(target) //nolint:errcheck
				return ErrNotEmpty
			}
		}
		e.inUse = false
		if err := fs.writeDirEntry(d, i, e); err != nil {
			fs.inodeClose(target) //nolint:errcheck
			return err
		}
		fs.inodeRemove(target)
		return fs.inodeClose(target)
	}
	return ErrNotFound
}

// dirIsEmpty reports whether d has any in-use entries other than "." and
// "..".
func (fs *FileSystem) dirIsEmpty(d *directory) (bool, error) {
	count := fs.dirEntryCount(d)
	for i := 0; i < count; i++ {
		e, err := fs.readDirEntry(d, i)
		if err != nil {
			return false, err
		}
		if e.inUse && e.name != "." && e.name != ".." {
			return false, nil
		}
	}
	return true, nil
}

// dirReaddir advances d's cursor and returns the next in-use entry's name,
// skipping "." and "..". ok is false once the directory is exhausted.
func (fs *FileSystem) dirReaddir(d *directory) (name string, ok bool, err error) {
	count := fs.dirEntryCount(d)
	for d.readPos < count {
		i := d.readPos
		d.readPos++
		e, err := fs.readDirEntry(d, i)
		if err != nil {
			return "", false, err
		}
		if e.inUse && e.name != "." && e.name != ".." {
			return e.name, true, nil
		}
	}
	return "", false, nil
}

// dirLink adds "." -> self and ".." -> parent to a freshly created
// directory inode, the invariant every directory but the bootstrap root
// carries from the moment it is created.
func (fs *FileSystem) dirLink(d *directory, selfSector, parentSector uint32) error {
	if err := fs.dirAdd(d, ".", selfSector); err != nil {
		return err
	}
	return fs.dirAdd(d, "..", parentSector)
}
