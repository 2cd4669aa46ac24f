// Package fsys implements the inode storage engine and hierarchical
// directory / path-resolution layer of a small teaching filesystem: a
// persistent, sector-addressable, block-allocating object store with
// sparse/growable regular files, nested directories, and a free-space
// bitmap, on top of an external block device.
package fsys

import (
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tholloway/gofs/internal/metrics"
)

// rootDirInitialEntries sizes the root directory created at format time;
// it is not a hard limit, since dirAdd grows the directory file when full.
const rootDirInitialEntries = 16

// FileSystem is a single mounted volume: one Device, one free-space map,
// one open-inode table, and the big lock that makes every public operation
// atomic with respect to any other, per spec.md §5. There is normally
// exactly one FileSystem value per mounted device, so keeping the lock here
// rather than as a package-level global is an observably equivalent and
// more idiomatic reading of "process-wide singleton".
type FileSystem struct {
	mu sync.Mutex

	dev     Device
	freeMap *freeMap
	inodes  *inodeTable

	volumeID uuid.UUID
	label    string

	log     *logrus.Logger
	metrics *metrics.Collector

	boot *Session
}

// Option configures optional ambient behavior of a FileSystem at Mount time.
type Option func(*FileSystem)

// WithLogger injects a structured logger; each operation logs once when it
// finishes, at Debug on success and at Warn (Error for Mount) on failure. A
// nil logger (the default) is equivalent to logrus.New() with output
// discarded.
func WithLogger(l *logrus.Logger) Option {
	return func(fs *FileSystem) { fs.log = l }
}

// WithMetrics injects a metrics.Collector for operation counters/latency and
// a free-sector gauge.
func WithMetrics(c *metrics.Collector) Option {
	return func(fs *FileSystem) { fs.metrics = c }
}

// WithLabel sets the volume label surfaced via Label()/SetLabel().
func WithLabel(label string) Option {
	return func(fs *FileSystem) { fs.label = label }
}

// Mount attaches the engine to dev. If format is true the device is
// reinitialized first: a fresh free-space map and an empty root directory
// are created, discarding anything already on dev. Mount always leaves the
// free map open and a booting session rooted at "/" ready via Boot().
func Mount(dev Device, format bool, opts ...Option) (*FileSystem, error) {
	fs := &FileSystem{
		dev:      dev,
		inodes:   newInodeTable(),
		volumeID: uuid.New(),
	}
	for _, o := range opts {
		o(fs)
	}
	if fs.log == nil {
		fs.log = logrus.New()
		fs.log.SetOutput(io.Discard)
		fs.log.SetLevel(logrus.WarnLevel)
	}
	entry := fs.log.WithFields(logrus.Fields{"op": "mount", "volume": fs.volumeID})

	if format {
		entry.Info("formatting filesystem")
		if err := fs.format(); err != nil {
			entry.WithError(err).Error("format failed")
			return nil, err
		}
	}

	fm := newFreeMap(dev.SectorCount())
	if err := fs.openFreeMap(fm); err != nil {
		entry.WithError(err).Error("opening free map failed")
		return nil, err
	}
	fs.freeMap = fm
	if fs.metrics != nil {
		fs.metrics.SetFreeSectors(fs.freeMap.freeCount())
	}

	boot, err := fs.NewSession(nil, nil)
	if err != nil {
		return nil, err
	}
	fs.boot = boot

	entry.Info("mounted")
	return fs, nil
}

// Boot returns the session the dispatcher's bootstrap task would inherit:
// rooted at "/", created once at Mount time.
func (fs *FileSystem) Boot() *Session { return fs.boot }

// format lays down a brand-new free-space map and root directory, following
// spec.md's bootstrap: the free map's own bitmap object is built in memory
// first (so its reserved bits are already correct), then inodeCreate for
// the free map's own inode pulls its data sectors from that in-memory map,
// and finally the root directory is created the same way any directory is.
func (fs *FileSystem) format() error {
	total := fs.dev.SectorCount()
	fm := newFreeMap(total)

	if err := fm.markUsed(FreeMapSector); err != nil {
		return err
	}
	if err := fm.markUsed(RootDirSector); err != nil {
		return err
	}

	fs.freeMap = fm
	bitmapBytes := fm.bm.ToBytes()
	if err := fs.inodeCreate(FreeMapSector, int64(len(bitmapBytes)), false); err != nil {
		return err
	}

	if err := fs.dirCreate(RootDirSector, rootDirInitialEntries); err != nil {
		return err
	}
	root, err := fs.inodeOpen(RootDirSector)
	if err != nil {
		return err
	}
	if err := fs.dirLink(dirOpen(root), RootDirSector, RootDirSector); err != nil {
		fs.inodeClose(root) //nolint:errcheck
		return err
	}
	if err := fs.inodeClose(root); err != nil {
		return err
	}

	if err := fs.flushFreeMap(fm); err != nil {
		return err
	}
	fs.freeMap = nil // Mount reopens it fresh from disk, as it would after any remount.
	return nil
}

func (fs *FileSystem) flushFreeMap(fm *freeMap) error {
	fm.inode = nil
	oi, err := fs.inodeOpen(FreeMapSector)
	if err != nil {
		return err
	}
	if _, err := fs.inodeWriteAt(oi, fm.toDiskBytes(), 0); err != nil {
		fs.inodeClose(oi) //nolint:errcheck
		return err
	}
	return fs.inodeClose(oi)
}

// openFreeMap reads the free map's bitmap back from its inode at mount time.
func (fs *FileSystem) openFreeMap(fm *freeMap) error {
	oi, err := fs.inodeOpen(FreeMapSector)
	if err != nil {
		return err
	}
	fm.inode = oi
	length := fs.inodeLength(oi)
	buf := make([]byte, length)
	if _, err := fs.inodeReadAt(oi, buf, 0); err != nil {
		return err
	}
	fm.loadDiskBytes(buf)
	return nil
}

// Close shuts down the filesystem module, writing the free map's bitmap
// back to disk. It corresponds to filesys_done in the source.
func (fs *FileSystem) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.boot != nil {
		fs.boot.Close() //nolint:errcheck
		fs.boot = nil
	}
	if fs.freeMap == nil || fs.freeMap.inode == nil {
		return nil
	}
	oi := fs.freeMap.inode
	fs.freeMap.inode = nil
	if _, err := fs.inodeWriteAt(oi, fs.freeMap.toDiskBytes(), 0); err != nil {
		fs.inodeClose(oi) //nolint:errcheck
		return err
	}
	return fs.inodeClose(oi)
}

// Label returns the volume label, or "" if none was set.
func (fs *FileSystem) Label() string { return fs.label }

// SetLabel changes the volume label.
func (fs *FileSystem) SetLabel(label string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.label = label
	return nil
}

// VolumeID returns the in-memory volume identifier stamped at Mount time,
// used only for log/metric labelling (see SPEC_FULL.md §3).
func (fs *FileSystem) VolumeID() uuid.UUID { return fs.volumeID }

func (fs *FileSystem) trace(op, path string) (*logrus.Entry, time.Time) {
	return fs.log.WithFields(logrus.Fields{"op": op, "path": path, "volume": fs.volumeID}), time.Now()
}

func (fs *FileSystem) finish(op string, start time.Time, entry *logrus.Entry, err error) error {
	if fs.metrics != nil {
		fs.metrics.Observe(op, start, err)
		fs.metrics.SetFreeSectors(fs.freeMap.freeCount())
	}
	if err != nil {
		entry.WithError(err).Warn("operation failed")
	} else {
		entry.Debug("operation succeeded")
	}
	return err
}

// Create creates a new file or directory named name with size bytes
// preallocated (0 for a directory). It resolves name to a parent directory
// and leaf name, allocates a free sector, creates the inode there, links it
// into the parent, and — for a directory — immediately adds "." and "..".
// Any failure after the sector is allocated releases it before returning.
func (fs *FileSystem) Create(sess *Session, name string, size int64, isDir bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	entry, start := fs.trace("create", name)

	err := fs.create(sess, name, size, isDir)
	return fs.finish("create", start, entry, err)
}

func (fs *FileSystem) create(sess *Session, name string, size int64, isDir bool) error {
	r, err := fs.resolveParent(sess, name)
	if err != nil {
		return err
	}
	defer fs.dirClose(r.parent) //nolint:errcheck

	if r.leaf == "" {
		return ErrInvalidName
	}
	return fs.createIn(r.parent, r.leaf, size, isDir)
}

// createIn creates leaf as a child of an already-open parent directory,
// without any path resolution. This is the primitive both the path-based
// Create facade and inode-relative callers (the FUSE adapter's Parent+Name
// ops) build on.
func (fs *FileSystem) createIn(parent *directory, leaf string, size int64, isDir bool) error {
	if parent.inode.removed {
		return ErrRemoved
	}

	sector, err := fs.freeMap.allocate(1)
	if err != nil {
		return err
	}
	release := true
	defer func() {
		if release {
			fs.freeMap.release(sector, 1) //nolint:errcheck
		}
	}()

	if err := fs.inodeCreate(sector, size, isDir); err != nil {
		return err
	}
	if err := fs.dirAdd(parent, leaf, sector); err != nil {
		return err
	}

	if isDir {
		child, err := fs.inodeOpen(sector)
		if err != nil {
			return err
		}
		if err := fs.dirLink(dirOpen(child), sector, parent.inode.sector); err != nil {
			fs.inodeClose(child) //nolint:errcheck
			return err
		}
		if err := fs.inodeClose(child); err != nil {
			return err
		}
	}

	release = false
	return nil
}

// Open resolves name and returns a File handle. Opening "/" (or any
// directory) returns a handle with IsDir() true, rather than failing, per
// spec.md's resolution of its first Open Question.
func (fs *FileSystem) Open(sess *Session, name string) (*File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	entry, start := fs.trace("open", name)

	oi, ok, err := fs.resolveLeaf(sess, name)
	if err == nil && !ok {
		err = ErrNotFound
	}
	if err != nil {
		fs.finish("open", start, entry, err) //nolint:errcheck
		return nil, err
	}
	f := fs.newFile(oi)
	fs.finish("open", start, entry, nil) //nolint:errcheck
	return f, nil
}

// Remove unlinks name from its parent directory. A non-empty directory
// cannot be removed (spec.md's third Open Question, resolved in favor of
// the check). The underlying inode is reclaimed when its last opener
// closes it.
func (fs *FileSystem) Remove(sess *Session, name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	entry, start := fs.trace("remove", name)

	err := fs.remove(sess, name)
	return fs.finish("remove", start, entry, err)
}

func (fs *FileSystem) remove(sess *Session, name string) error {
	r, err := fs.resolveParent(sess, name)
	if err != nil {
		return err
	}
	defer fs.dirClose(r.parent) //nolint:errcheck
	if r.leaf == "" {
		return ErrInvalidName
	}
	return fs.dirRemove(r.parent, r.leaf)
}

// Mkdir is shorthand for Create(sess, name, 0, true).
func (fs *FileSystem) Mkdir(sess *Session, name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	entry, start := fs.trace("mkdir", name)
	err := fs.create(sess, name, 0, true)
	return fs.finish("mkdir", start, entry, err)
}

// OpenInode opens the inode at sector directly, bypassing path resolution,
// for callers that address inodes by number once they already have one in
// hand (a FUSE front-end, after a LookUpInode/MkDir/CreateFile response).
func (fs *FileSystem) OpenInode(sector uint32) (*File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	oi, err := fs.inodeOpen(sector)
	if err != nil {
		return nil, err
	}
	return fs.newFile(oi), nil
}

// ForgetInode drops n references an inode-addressed caller implicitly holds
// on sector (e.g. from FUSE's ForgetInodeOp, which reports how many prior
// LookUpInode/MkDir/CreateFile responses the kernel is done with), without
// requiring the caller to have a *File handle for each one.
func (fs *FileSystem) ForgetInode(sector uint32, n int) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for i := 0; i < n; i++ {
		oi, ok := fs.inodes.entries[sector]
		if !ok {
			return nil
		}
		if err := fs.inodeClose(oi); err != nil {
			return err
		}
	}
	return nil
}

// Chdir resolves name to a directory and replaces sess's current working
// directory with it.
func (fs *FileSystem) Chdir(sess *Session, name string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	entry, start := fs.trace("chdir", name)

	oi, ok, err := fs.resolveLeaf(sess, name)
	if err == nil && !ok {
		err = ErrNotFound
	}
	if err == nil && !oi.disk.isDir {
		fs.inodeClose(oi) //nolint:errcheck
		err = ErrNotDir
	}
	if err != nil {
		return fs.finish("chdir", start, entry, err)
	}
	old := sess.cwd
	sess.cwd = oi
	if old != nil {
		fs.inodeClose(old) //nolint:errcheck
	}
	return fs.finish("chdir", start, entry, nil)
}
