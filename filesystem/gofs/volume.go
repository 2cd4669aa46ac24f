// Package gofs adapts the inode-engine core in fsys to the generic
// filesystem.FileSystem/File interfaces, the same role each concrete format
// package (ext4, fat32, iso9660, squashfs) used to play for its own on-disk
// format.
package gofs

import (
	"os"

	"github.com/tholloway/gofs/filesystem"
	"github.com/tholloway/gofs/fsys"
)

// Volume wraps a mounted *fsys.FileSystem and a single session (its own
// current working directory) behind the generic filesystem.FileSystem
// interface, for callers that want one format-agnostic surface rather than
// the richer session-oriented fsys API directly.
type Volume struct {
	fs   *fsys.FileSystem
	sess *fsys.Session
}

var _ filesystem.FileSystem = (*Volume)(nil)

// New wraps fs using its boot session as the volume's working directory.
func New(fs *fsys.FileSystem) *Volume {
	return &Volume{fs: fs, sess: fs.Boot()}
}

// Type reports the format identifier used by filesystem.FileSystem
// implementations generically; gofs only ever has the one.
func (v *Volume) Type() filesystem.Type { return filesystem.TypeGofs }

// Mkdir creates pathname as a new, empty directory.
func (v *Volume) Mkdir(pathname string) error {
	return v.fs.Mkdir(v.sess, pathname)
}

// ReadDir lists the entries of the directory at pathname.
func (v *Volume) ReadDir(pathname string) ([]os.FileInfo, error) {
	f, err := v.fs.Open(v.sess, pathname)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if !f.IsDir() {
		return nil, fsys.ErrNotDir
	}
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// OpenFile opens pathname, creating it first if flag carries os.O_CREATE
// and it does not already exist.
func (v *Volume) OpenFile(pathname string, flag int) (filesystem.File, error) {
	if flag&os.O_CREATE != 0 {
		err := v.fs.Create(v.sess, pathname, 0, false)
		if err != nil && err != fsys.ErrExists {
			return nil, err
		}
	}
	return v.fs.Open(v.sess, pathname)
}

// Remove unlinks pathname.
func (v *Volume) Remove(pathname string) error {
	return v.fs.Remove(v.sess, pathname)
}

// Label returns the volume label.
func (v *Volume) Label() string { return v.fs.Label() }

// SetLabel changes the volume label.
func (v *Volume) SetLabel(label string) error { return v.fs.SetLabel(label) }
