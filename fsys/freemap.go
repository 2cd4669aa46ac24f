package fsys

import (
	"fmt"

	"github.com/tholloway/gofs/util/bitmap"
)

// Reserved sector numbers, fixed by the on-disk layout: sector 0 is always
// the free-map's own inode, sector 1 is always the root directory's inode.
const (
	FreeMapSector uint32 = 0
	RootDirSector uint32 = 1
)

// freeMap is the persistent bitmap of free sectors, stored as the data of
// the reserved inode at FreeMapSector so that it grows like any other file.
//
// On disk, per spec.md, a set bit means the sector is free. In memory this
// wraps util/bitmap.Bitmap, whose own convention (inherited from the ext4
// package this was adapted from) is the opposite: a set bit means "in use".
// toDiskBytes/loadDiskBytes invert every byte at the boundary so the two
// conventions never leak into each other; everywhere else in this package,
// "allocated" reads as bm.Set(), exactly as util/bitmap documents it.
type freeMap struct {
	bm    *bitmap.Bitmap
	inode *openInode // nil until openFreeMap has run at Mount
	total uint32
}

func newFreeMap(totalSectors uint32) *freeMap {
	return &freeMap{bm: bitmap.NewBits(int(totalSectors)), total: totalSectors}
}

func (f *freeMap) markUsed(sector uint32) error {
	if sector >= f.total {
		return fmt.Errorf("fsys: sector %d out of range for %d-sector device", sector, f.total)
	}
	return f.bm.Set(int(sector))
}

// allocate returns a run of count contiguous free sectors, marking them
// used. Call sites in this package only ever request count==1; contiguity
// for larger runs is honest-effort only, per spec.
func (f *freeMap) allocate(count int) (uint32, error) {
	if count <= 0 {
		return 0, fmt.Errorf("fsys: invalid allocation size %d", count)
	}
	start := 0
	for {
		loc := f.bm.FirstFree(start)
		if loc < 0 || uint32(loc)+uint32(count) > f.total {
			return 0, ErrNoSpace
		}
		ok := true
		for i := 0; i < count; i++ {
			set, err := f.bm.IsSet(loc + i)
			if err != nil || set {
				ok = false
				break
			}
		}
		if !ok {
			start = loc + 1
			continue
		}
		for i := 0; i < count; i++ {
			if err := f.bm.Set(loc + i); err != nil {
				return 0, err
			}
		}
		return uint32(loc), nil
	}
}

// release marks [first, first+count) free again. Releasing an already-free
// sector, or double-releasing, is a programmer error per spec and panics
// rather than silently succeeding.
func (f *freeMap) release(first uint32, count int) error {
	for i := 0; i < count; i++ {
		loc := int(first) + i
		set, err := f.bm.IsSet(loc)
		if err != nil {
			return err
		}
		if !set {
			panic(fmt.Sprintf("fsys: release of already-free sector %d", loc))
		}
		if err := f.bm.Clear(loc); err != nil {
			return err
		}
	}
	return nil
}

// freeCount reports how many sectors are currently unallocated, for metrics.
func (f *freeMap) freeCount() int {
	free := 0
	for i := uint32(0); i < f.total; i++ {
		set, err := f.bm.IsSet(int(i))
		if err == nil && !set {
			free++
		}
	}
	return free
}

func (f *freeMap) toDiskBytes() []byte {
	b := f.bm.ToBytes()
	invert(b)
	return b
}

func (f *freeMap) loadDiskBytes(b []byte) {
	cp := make([]byte, len(b))
	copy(cp, b)
	invert(cp)
	f.bm.FromBytes(cp)
}

func invert(b []byte) {
	for i := range b {
		b[i] = ^b[i]
	}
}
