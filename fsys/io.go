package fsys

// inodeReadAt copies up to len(buf) bytes from oi's data starting at offset,
// returning the number of bytes actually copied (0 at or past EOF).
func (fs *FileSystem) inodeReadAt(oi *openInode, buf []byte, offset int64) (int, error) {
	size := len(buf)
	read := 0
	var bounce []byte

	for size > 0 {
		sector, ok := fs.byteToSector(&oi.disk, offset)
		if !ok {
			break
		}
		sectorOfs := int(offset % SectorSize)

		inodeLeft := int64(oi.disk.length) - offset
		sectorLeft := SectorSize - sectorOfs
		minLeft := sectorLeft
		if inodeLeft < int64(minLeft) {
			minLeft = int(inodeLeft)
		}
		chunk := size
		if chunk > minLeft {
			chunk = minLeft
		}
		if chunk <= 0 {
			break
		}

		if sectorOfs == 0 && chunk == SectorSize {
			if err := fs.dev.ReadSector(sector, buf[read:read+SectorSize]); err != nil {
				return read, err
			}
		} else {
			if bounce == nil {
				bounce = make([]byte, SectorSize)
			}
			if err := fs.dev.ReadSector(sector, bounce); err != nil {
				return read, err
			}
			copy(buf[read:read+chunk], bounce[sectorOfs:sectorOfs+chunk])
		}

		size -= chunk
		offset += int64(chunk)
		read += chunk
	}
	return read, nil
}

// inodeWriteAt writes len(buf) bytes into oi's data starting at offset,
// growing the file first if the write would extend past its current
// length. Returns 0 without touching disk if writes are currently denied.
func (fs *FileSystem) inodeWriteAt(oi *openInode, buf []byte, offset int64) (int, error) {
	if oi.denyWriteCount > 0 {
		return 0, nil
	}
	size := len(buf)
	if size == 0 {
		return 0, nil
	}

	if _, ok := fs.byteToSector(&oi.disk, offset+int64(size)-1); !ok {
		if offset+int64(size) > maxFileSize {
			return 0, ErrOutOfRange
		}
		if err := fs.inodeAlloc(&oi.disk, offset+int64(size)); err != nil {
			return 0, err
		}
		oi.disk.length = int32(offset + int64(size))
		if err := fs.dev.WriteSector(oi.sector, oi.disk.marshal()); err != nil {
			return 0, err
		}
	}

	written := 0
	var bounce []byte
	for size > 0 {
		sector, ok := fs.byteToSector(&oi.disk, offset)
		if !ok {
			break
		}
		sectorOfs := int(offset % SectorSize)

		inodeLeft := int64(oi.disk.length) - offset
		sectorLeft := SectorSize - sectorOfs
		minLeft := sectorLeft
		if inodeLeft < int64(minLeft) {
			minLeft = int(inodeLeft)
		}
		chunk := size
		if chunk > minLeft {
			chunk = minLeft
		}
		if chunk <= 0 {
			break
		}

		if sectorOfs == 0 && chunk == SectorSize {
			if err := fs.dev.WriteSector(sector, buf[written:written+SectorSize]); err != nil {
				return written, err
			}
		} else {
			if bounce == nil {
				bounce = make([]byte, SectorSize)
			}
			// The sector is read back first whenever the chunk leaves part
			// of it untouched (it starts past the sector's first byte or
			// ends before its last), so those bytes are preserved;
			// otherwise the bounce buffer starts from zeros.
			if sectorOfs > 0 || chunk < sectorLeft {
				if err := fs.dev.ReadSector(sector, bounce); err != nil {
					return written, err
				}
			} else {
				for i := range bounce {
					bounce[i] = 0
				}
			}
			copy(bounce[sectorOfs:sectorOfs+chunk], buf[written:written+chunk])
			if err := fs.dev.WriteSector(sector, bounce); err != nil {
				return written, err
			}
		}

		size -= chunk
		offset += int64(chunk)
		written += chunk
	}
	return written, nil
}
