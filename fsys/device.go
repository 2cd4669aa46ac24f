package fsys

import (
	"fmt"

	"github.com/tholloway/gofs/backend"
)

// SectorSize is the fixed unit of address and transfer for the block device,
// matching the on-disk inode and directory-entry layouts below.
const SectorSize = 512

// Device is the external block-device collaborator the engine is built on:
// unconditional, whole-sector transfers addressed by a non-negative sector
// number. The engine never assumes ordering or atomicity across calls.
type Device interface {
	ReadSector(sector uint32, dst []byte) error
	WriteSector(sector uint32, src []byte) error
	// SectorCount reports the total addressable sectors on the device.
	SectorCount() uint32
}

// SectorDevice adapts a backend.Storage (anything that can ReadAt/WriteAt
// bytes, e.g. an *os.File opened via backend/file) to the sector-addressed
// Device interface the engine consumes. This is the seam spec §6 describes
// as "read(dev, sector, dst512)" / "write(dev, sector, src512)".
type SectorDevice struct {
	storage backend.Storage
	sectors uint32
}

// NewSectorDevice wraps storage, which must be at least sectorCount*SectorSize
// bytes, as a Device.
func NewSectorDevice(storage backend.Storage, sectorCount uint32) *SectorDevice {
	return &SectorDevice{storage: storage, sectors: sectorCount}
}

func (d *SectorDevice) SectorCount() uint32 { return d.sectors }

func (d *SectorDevice) ReadSector(sector uint32, dst []byte) error {
	if err := d.checkBounds(sector, len(dst)); err != nil {
		return err
	}
	n, err := d.storage.ReadAt(dst[:SectorSize], int64(sector)*SectorSize)
	if err != nil {
		return fmt.Errorf("fsys: read sector %d: %w", sector, err)
	}
	if n != SectorSize {
		return fmt.Errorf("fsys: short read of sector %d: got %d bytes", sector, n)
	}
	return nil
}

func (d *SectorDevice) WriteSector(sector uint32, src []byte) error {
	if err := d.checkBounds(sector, len(src)); err != nil {
		return err
	}
	w, err := d.storage.Writable()
	if err != nil {
		return fmt.Errorf("fsys: write sector %d: %w", sector, err)
	}
	n, err := w.WriteAt(src[:SectorSize], int64(sector)*SectorSize)
	if err != nil {
		return fmt.Errorf("fsys: write sector %d: %w", sector, err)
	}
	if n != SectorSize {
		return fmt.Errorf("fsys: short write of sector %d: wrote %d bytes", sector, n)
	}
	return nil
}

func (d *SectorDevice) checkBounds(sector uint32, bufLen int) error {
	if bufLen < SectorSize {
		return fmt.Errorf("fsys: buffer too small for sector transfer: %d bytes", bufLen)
	}
	if d.sectors != 0 && sector >= d.sectors {
		return fmt.Errorf("fsys: sector %d out of range (device has %d sectors)", sector, d.sectors)
	}
	return nil
}

// MemDevice is an in-memory Device, used by the core's own tests and by
// anyone embedding gofs without touching a real file. It plays the stub-file
// role a fake io.ReaderAt/WriterAt would, but speaks the sector-level Device
// interface directly instead.
type MemDevice struct {
	sectors [][SectorSize]byte
}

// NewMemDevice allocates a zeroed in-memory device of sectorCount sectors.
func NewMemDevice(sectorCount uint32) *MemDevice {
	return &MemDevice{sectors: make([][SectorSize]byte, sectorCount)}
}

func (m *MemDevice) SectorCount() uint32 { return uint32(len(m.sectors)) }

func (m *MemDevice) ReadSector(sector uint32, dst []byte) error {
	if sector >= uint32(len(m.sectors)) {
		return fmt.Errorf("fsys: sector %d out of range (device has %d sectors)", sector, len(m.sectors))
	}
	if len(dst) < SectorSize {
		return fmt.Errorf("fsys: buffer too small for sector transfer: %d bytes", len(dst))
	}
	copy(dst, m.sectors[sector][:])
	return nil
}

func (m *MemDevice) WriteSector(sector uint32, src []byte) error {
	if sector >= uint32(len(m.sectors)) {
		return fmt.Errorf("fsys: sector %d out of range (device has %d sectors)", sector, len(m.sectors))
	}
	if len(src) < SectorSize {
		return fmt.Errorf("fsys: buffer too small for sector transfer: %d bytes", len(src))
	}
	copy(m.sectors[sector][:], src)
	return nil
}
