package fsys

// openInode is the in-memory, reference-counted handle for one on-disk
// inode. At most one openInode exists per sector at any time; inodeTable
// enforces that by dedup-on-sector, exactly as spec.md's "Open-inode table"
// requires.
type openInode struct {
	sector         uint32
	openCount      int
	denyWriteCount int
	removed        bool
	disk           diskInode
}

// inodeTable is the process-wide (here: per-FileSystem) set of open inodes.
// Every public FileSystem operation runs under FileSystem.mu, so this map is
// never accessed concurrently; spec.md §5 explicitly says no finer-grained
// locking is required under that model.
type inodeTable struct {
	entries map[uint32]*openInode
}

func newInodeTable() *inodeTable {
	return &inodeTable{entries: make(map[uint32]*openInode)}
}

// inodeOpen returns the existing open-inode record for sector if one is live,
// incrementing its reference count, or reads the sector from disk into a
// new record with a reference count of 1.
func (fs *FileSystem) inodeOpen(sector uint32) (*openInode, error) {
	if oi, ok := fs.inodes.entries[sector]; ok {
		oi.openCount++
		return oi, nil
	}
	buf := make([]byte, SectorSize)
	if err := fs.dev.ReadSector(sector, buf); err != nil {
		return nil, err
	}
	d, err := unmarshalDiskInode(buf)
	if err != nil {
		return nil, err
	}
	oi := &openInode{sector: sector, openCount: 1, disk: *d}
	fs.inodes.entries[sector] = oi
	return oi, nil
}

// inodeReopen increments oi's reference count and returns it, mirroring
// inode_reopen in the source: every open-inode obtained this way must be
// balanced with its own inodeClose.
func (fs *FileSystem) inodeReopen(oi *openInode) *openInode {
	oi.openCount++
	return oi
}

// inodeClose decrements oi's reference count. When it reaches zero the
// record is dropped from the table, and if oi was marked removed, its data
// blocks and inode sector are returned to the free-space map.
func (fs *FileSystem) inodeClose(oi *openInode) error {
	oi.openCount--
	if oi.openCount > 0 {
		return nil
	}
	delete(fs.inodes.entries, oi.sector)
	if oi.removed {
		if err := fs.inodeDealloc(&oi.disk); err != nil {
			return err
		}
		if err := fs.freeMap.release(oi.sector, 1); err != nil {
			return err
		}
	}
	return nil
}

// inodeRemove marks oi to be deleted once its last opener closes it.
func (fs *FileSystem) inodeRemove(oi *openInode) {
	oi.removed = true
}

// denyWrite increments oi's deny-write count; allowWrite decrements it. The
// invariant deny_write_count <= open_count is a programmer error if ever
// violated, so a broken caller panics rather than silently corrupting state.
func (fs *FileSystem) denyWrite(oi *openInode) {
	oi.denyWriteCount++
	if oi.denyWriteCount > oi.openCount {
		panic("fsys: deny_write_count exceeds open_count")
	}
}

func (fs *FileSystem) allowWrite(oi *openInode) {
	if oi.denyWriteCount <= 0 {
		panic("fsys: allow_write without matching deny_write")
	}
	oi.denyWriteCount--
}

// inodeLength returns the current length, in bytes, of oi's data.
func (fs *FileSystem) inodeLength(oi *openInode) int64 {
	return int64(oi.disk.length)
}

// inodeNumber returns oi's inode sector number, used as the "inumber" the
// dispatcher's isdir/inumber syscalls report.
func (fs *FileSystem) inodeNumber(oi *openInode) uint32 {
	return oi.sector
}
