// Command gofsmount mounts a gofs volume image as a FUSE file system, the
// same way a student would expose a teaching kernel's file system to real
// userspace programs without writing a VFS shim for each one.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/user"
	"strconv"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/sirupsen/logrus"

	"github.com/tholloway/gofs/backend/file"
	"github.com/tholloway/gofs/fsys"
	"github.com/tholloway/gofs/fsys/fusefs"
)

var (
	fImage      = flag.String("image", "", "path to a gofs volume image")
	fMountPoint = flag.String("mount_point", "", "path to mount point")
	fReadOnly   = flag.Bool("read_only", false, "mount the volume read-only")
	fVerbose    = flag.Bool("v", false, "enable debug logging")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if *fImage == "" || *fMountPoint == "" {
		return fmt.Errorf("both -image and -mount_point are required")
	}

	log := logrus.New()
	if *fVerbose {
		log.SetLevel(logrus.DebugLevel)
	}

	storage, err := file.OpenFromPath(*fImage, *fReadOnly)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	info, err := storage.Stat()
	if err != nil {
		return err
	}
	sectors := uint32(info.Size() / fsys.SectorSize)
	dev := fsys.NewSectorDevice(storage, sectors)

	volume, err := fsys.Mount(dev, false, fsys.WithLogger(log))
	if err != nil {
		return fmt.Errorf("mount volume: %w", err)
	}
	defer volume.Close() //nolint:errcheck

	me, err := user.Current()
	if err != nil {
		return err
	}
	uid, err := strconv.ParseUint(me.Uid, 10, 32)
	if err != nil {
		return err
	}
	gid, err := strconv.ParseUint(me.Gid, 10, 32)
	if err != nil {
		return err
	}

	server := fuseutil.NewFileSystemServer(fusefs.New(volume, uint32(uid), uint32(gid)))
	cfg := &fuse.MountConfig{
		// Disable writeback caching so pid is always available in OpContext,
		// matching the upstream samples' mount configuration.
		DisableWritebackCaching: true,
	}

	mfs, err := fuse.Mount(*fMountPoint, server, cfg)
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	log.WithField("mount_point", *fMountPoint).Info("mounted")

	return mfs.Join(context.Background())
}
