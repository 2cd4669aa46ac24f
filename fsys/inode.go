package fsys

import "encoding/binary"

// inodeMagic identifies a valid on-disk inode sector.
const inodeMagic uint32 = 0x494e4f44 // "INOD" in the original's spirit

const (
	// directBlocks is D: the number of direct data-block pointers that fit
	// in an inode alongside its other fields so the record is exactly one
	// sector. indexFanout is F: sectorNumbers per index block (512/4).
	directBlocks = 123
	indexFanout  = SectorSize / 4

	// maxFileSize is (D + F + F*F) * SectorSize, the largest file this
	// three-level block map can address.
	maxFileSize = int64(directBlocks+indexFanout+indexFanout*indexFanout) * SectorSize

	// diskInodeHeaderSize is length(4) + magic(4) + isDir(4).
	diskInodeHeaderSize = 12
)

// diskInode is the exact on-disk layout of one inode sector:
//
//	length(int32) magic(uint32) is_dir(uint32) direct[123](uint32) indirect(uint32) double_indirect(uint32)
//
// 12 + 123*4 + 4 + 4 = 512 bytes, with no padding left over.
type diskInode struct {
	length         int32
	isDir          bool
	direct         [directBlocks]uint32
	indirect       uint32
	doubleIndirect uint32
}

func zeroDiskInode(isDir bool, length int32) diskInode {
	return diskInode{length: length, isDir: isDir}
}

// marshal encodes the inode into exactly SectorSize bytes.
func (d *diskInode) marshal() []byte {
	buf := make([]byte, SectorSize)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(d.length))
	binary.LittleEndian.PutUint32(buf[4:8], inodeMagic)
	isDir := uint32(0)
	if d.isDir {
		isDir = 1
	}
	binary.LittleEndian.PutUint32(buf[8:12], isDir)
	off := diskInodeHeaderSize
	for i := 0; i < directBlocks; i++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], d.direct[i])
		off += 4
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], d.indirect)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:off+4], d.doubleIndirect)
	return buf
}

// unmarshalDiskInode decodes a sector previously written by marshal, failing
// with ErrBadMagic if the sentinel does not match.
func unmarshalDiskInode(buf []byte) (*diskInode, error) {
	if len(buf) < SectorSize {
		return nil, ErrBadMagic
	}
	magic := binary.LittleEndian.Uint32(buf[4:8])
	if magic != inodeMagic {
		return nil, ErrBadMagic
	}
	d := &diskInode{
		length: int32(binary.LittleEndian.Uint32(buf[0:4])),
		isDir:  binary.LittleEndian.Uint32(buf[8:12]) != 0,
	}
	off := diskInodeHeaderSize
	for i := 0; i < directBlocks; i++ {
		d.direct[i] = binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
	}
	d.indirect = binary.LittleEndian.Uint32(buf[off : off+4])
	off += 4
	d.doubleIndirect = binary.LittleEndian.Uint32(buf[off : off+4])
	return d, nil
}

// indexBlock is a sector-sized array of sector numbers, used for the single
// and double indirect levels of the block map.
type indexBlock struct {
	entries [indexFanout]uint32
}

func (b *indexBlock) marshal() []byte {
	buf := make([]byte, SectorSize)
	off := 0
	for i := 0; i < indexFanout; i++ {
		binary.LittleEndian.PutUint32(buf[off:off+4], b.entries[i])
		off += 4
	}
	return buf
}

func unmarshalIndexBlock(buf []byte) *indexBlock {
	b := &indexBlock{}
	off := 0
	for i := 0; i < indexFanout; i++ {
		b.entries[i] = binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
	}
	return b
}

func bytesToSectors(length int64) int {
	return int((length + SectorSize - 1) / SectorSize)
}
