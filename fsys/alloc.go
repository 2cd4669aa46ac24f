package fsys

// indexToSector resolves a logical block index within d to a physical
// sector number, per spec.md §4.C: direct, then indirect, then
// double-indirect. Returns ErrOutOfRange if index addresses beyond the
// three-level map.
func (fs *FileSystem) indexToSector(d *diskInode, index int) (uint32, error) {
	if index < 0 {
		return 0, ErrOutOfRange
	}
	base := 0
	if index < directBlocks {
		return d.direct[index], nil
	}
	base += directBlocks

	if index-base < indexFanout {
		blk, err := fs.readIndexBlock(d.indirect)
		if err != nil {
			return 0, err
		}
		return blk.entries[index-base], nil
	}
	base += indexFanout

	if index-base < indexFanout*indexFanout {
		outer, err := fs.readIndexBlock(d.doubleIndirect)
		if err != nil {
			return 0, err
		}
		i1 := (index - base) / indexFanout
		i2 := (index - base) % indexFanout
		inner, err := fs.readIndexBlock(outer.entries[i1])
		if err != nil {
			return 0, err
		}
		return inner.entries[i2], nil
	}

	return 0, ErrOutOfRange
}

// byteToSector returns the physical sector containing byte offset pos
// within the file described by d; ok is false if pos is negative or at or
// past d.length.
func (fs *FileSystem) byteToSector(d *diskInode, pos int64) (uint32, bool) {
	if pos < 0 || pos >= int64(d.length) {
		return 0, false
	}
	sector, err := fs.indexToSector(d, int(pos/SectorSize))
	if err != nil {
		return 0, false
	}
	return sector, true
}

func (fs *FileSystem) readIndexBlock(sector uint32) (*indexBlock, error) {
	buf := make([]byte, SectorSize)
	if err := fs.dev.ReadSector(sector, buf); err != nil {
		return nil, err
	}
	return unmarshalIndexBlock(buf), nil
}

func (fs *FileSystem) writeIndexBlock(sector uint32, blk *indexBlock) error {
	return fs.dev.WriteSector(sector, blk.marshal())
}

var zeroSector = make([]byte, SectorSize)

// allocOneIfZero allocates and zeroes a fresh data sector into *slot if it
// is currently unallocated (zero), leaving an already-allocated slot alone.
// This is what makes inodeAlloc idempotent over already-allocated prefixes.
func (fs *FileSystem) allocOneIfZero(slot *uint32) error {
	if *slot != 0 {
		return nil
	}
	sector, err := fs.freeMap.allocate(1)
	if err != nil {
		return err
	}
	if err := fs.dev.WriteSector(sector, zeroSector); err != nil {
		return err
	}
	*slot = sector
	return nil
}

// allocIndirect recursively allocates the sectors needed to address
// numSectors logical blocks through an index tree rooted at *blockSector,
// level levels deep (1 = single indirect, 2 = double indirect). Newly
// allocated index slots are zeroed so a partially filled tree reads back as
// "unallocated below this point", per spec.
func (fs *FileSystem) allocIndirect(blockSector *uint32, numSectors, level int) error {
	if level == 0 {
		return fs.allocOneIfZero(blockSector)
	}
	if err := fs.allocOneIfZero(blockSector); err != nil {
		return err
	}
	blk, err := fs.readIndexBlock(*blockSector)
	if err != nil {
		return err
	}
	var blocks int
	if level == 1 {
		blocks = numSectors
	} else {
		blocks = ceilDiv(numSectors, indexFanout)
	}
	remaining := numSectors
	for i := 0; i < blocks; i++ {
		subsize := 1
		if level > 1 {
			subsize = minInt(remaining, indexFanout)
		}
		if err := fs.allocIndirect(&blk.entries[i], subsize, level-1); err != nil {
			return err
		}
		remaining -= subsize
	}
	return fs.writeIndexBlock(*blockSector, blk)
}

// inodeAlloc ensures d has enough allocated data blocks to address
// newLength bytes, allocating only what is missing. On failure it returns
// an error; any sectors it already allocated are retained on d and will be
// reclaimed on the inode's eventual closed-with-removed, per spec.
func (fs *FileSystem) inodeAlloc(d *diskInode, newLength int64) error {
	if newLength > maxFileSize {
		return ErrOutOfRange
	}
	sectors := bytesToSectors(newLength)

	blocks := minInt(sectors, directBlocks)
	for i := 0; i < blocks; i++ {
		if err := fs.allocOneIfZero(&d.direct[i]); err != nil {
			return err
		}
	}
	sectors -= blocks
	if sectors == 0 {
		return nil
	}

	blocks = minInt(sectors, indexFanout)
	if err := fs.allocIndirect(&d.indirect, blocks, 1); err != nil {
		return err
	}
	sectors -= blocks
	if sectors == 0 {
		return nil
	}

	blocks = minInt(sectors, indexFanout*indexFanout)
	if err := fs.allocIndirect(&d.doubleIndirect, blocks, 2); err != nil {
		return err
	}
	sectors -= blocks
	if sectors != 0 {
		return ErrOutOfRange
	}
	return nil
}

// deallocIndirect is the mirror of allocIndirect: it releases every data
// sector reachable through the index tree rooted at blockSector, then the
// index sectors themselves.
func (fs *FileSystem) deallocIndirect(blockSector uint32, numSectors, level int) error {
	if level == 0 {
		return fs.freeMap.release(blockSector, 1)
	}
	blk, err := fs.readIndexBlock(blockSector)
	if err != nil {
		return err
	}
	var blocks int
	if level == 1 {
		blocks = numSectors
	} else {
		blocks = ceilDiv(numSectors, indexFanout)
	}
	remaining := numSectors
	for i := 0; i < blocks; i++ {
		subsize := 1
		if level > 1 {
			subsize = minInt(remaining, indexFanout)
		}
		if err := fs.deallocIndirect(blk.entries[i], subsize, level-1); err != nil {
			return err
		}
		remaining -= subsize
	}
	return fs.freeMap.release(blockSector, 1)
}

// inodeDealloc releases every data sector and index block addressed by d,
// walking the same three levels inodeAlloc fills in. It does not release
// d's own inode sector; the caller (inodeClose) does that separately.
func (fs *FileSystem) inodeDealloc(d *diskInode) error {
	sectors := bytesToSectors(int64(d.length))

	blocks := minInt(sectors, directBlocks)
	for i := 0; i < blocks; i++ {
		if err := fs.freeMap.release(d.direct[i], 1); err != nil {
			return err
		}
	}
	sectors -= blocks
	if sectors == 0 {
		return nil
	}

	blocks = minInt(sectors, indexFanout)
	if err := fs.deallocIndirect(d.indirect, blocks, 1); err != nil {
		return err
	}
	sectors -= blocks
	if sectors == 0 {
		return nil
	}

	blocks = minInt(sectors, indexFanout*indexFanout)
	if err := fs.deallocIndirect(d.doubleIndirect, blocks, 2); err != nil {
		return err
	}
	return nil
}

// inodeCreate writes a brand-new inode at sector, with length bytes of data
// blocks allocated and zeroed. The inode sector itself is written only
// after every data block needed for length succeeds, so a failed create
// leaves no addressable partial state at sector.
func (fs *FileSystem) inodeCreate(sector uint32, length int64, isDir bool) error {
	if length < 0 {
		return ErrInvalidArgument
	}
	d := zeroDiskInode(isDir, int32(length))
	if err := fs.inodeAlloc(&d, length); err != nil {
		return err
	}
	return fs.dev.WriteSector(sector, d.marshal())
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
