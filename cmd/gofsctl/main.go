// Command gofsctl formats and inspects gofs volumes backed by a plain image
// file, the way a teaching filesystem's "shell" would without a real kernel
// syscall dispatcher behind it.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tholloway/gofs/backend/file"
	"github.com/tholloway/gofs/fsys"
	"github.com/tholloway/gofs/util"
)

var log = logrus.New()

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "gofsctl",
		Short: "Inspect and populate gofs volume images",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(mkfsCmd(), lsCmd(), catCmd(), mkdirCmd(), rmCmd(), cpCmd(), dumpCmd())
	return root
}

func mkfsCmd() *cobra.Command {
	var sectors uint32
	cmd := &cobra.Command{
		Use:   "mkfs IMAGE",
		Short: "Create a new volume image and format it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			size := int64(sectors) * fsys.SectorSize
			storage, err := file.CreateFromPath(path, size)
			if err != nil {
				return fmt.Errorf("create image: %w", err)
			}
			dev := fsys.NewSectorDevice(storage, sectors)
			fs, err := fsys.Mount(dev, true, fsys.WithLogger(log))
			if err != nil {
				return fmt.Errorf("format: %w", err)
			}
			if err := fs.Close(); err != nil {
				return err
			}
			return storage.Close()
		},
	}
	cmd.Flags().Uint32Var(&sectors, "sectors", 2048, "number of 512-byte sectors in the volume")
	return cmd
}

func openRW(path string) (*fsys.FileSystem, func() error, error) {
	storage, err := file.OpenFromPath(path, false)
	if err != nil {
		return nil, nil, fmt.Errorf("open image: %w", err)
	}
	info, err := storage.Stat()
	if err != nil {
		return nil, nil, err
	}
	sectors := uint32(info.Size() / fsys.SectorSize)
	dev := fsys.NewSectorDevice(storage, sectors)
	fs, err := fsys.Mount(dev, false, fsys.WithLogger(log))
	if err != nil {
		return nil, nil, fmt.Errorf("mount: %w", err)
	}
	return fs, func() error {
		if err := fs.Close(); err != nil {
			storage.Close() //nolint:errcheck
			return err
		}
		return storage.Close()
	}, nil
}

func lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls IMAGE [PATH]",
		Short: "List the entries of a directory (default: root)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/"
			if len(args) == 2 {
				path = args[1]
			}
			fs, closeFS, err := openRW(args[0])
			if err != nil {
				return err
			}
			defer closeFS() //nolint:errcheck

			sess := fs.Boot()
			f, err := fs.Open(sess, path)
			if err != nil {
				return err
			}
			defer f.Close()

			if !f.IsDir() {
				return fsys.ErrNotDir
			}
			entries, err := f.ReadDir(-1)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Println(e.Name())
			}
			return nil
		},
	}
}

func catCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat IMAGE PATH",
		Short: "Print a file's contents to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, closeFS, err := openRW(args[0])
			if err != nil {
				return err
			}
			defer closeFS() //nolint:errcheck

			f, err := fs.Open(fs.Boot(), args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			buf := make([]byte, f.Length())
			if _, err := f.Read(buf); err != nil {
				return err
			}
			_, err = os.Stdout.Write(buf)
			return err
		},
	}
}

func mkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir IMAGE PATH",
		Short: "Create a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, closeFS, err := openRW(args[0])
			if err != nil {
				return err
			}
			defer closeFS() //nolint:errcheck
			return fs.Mkdir(fs.Boot(), args[1])
		},
	}
}

func rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm IMAGE PATH",
		Short: "Remove a file or empty directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, closeFS, err := openRW(args[0])
			if err != nil {
				return err
			}
			defer closeFS() //nolint:errcheck
			return fs.Remove(fs.Boot(), args[1])
		},
	}
}

func dumpCmd() *cobra.Command {
	var sector, count uint32
	cmd := &cobra.Command{
		Use:   "dump IMAGE",
		Short: "Hex-dump a range of raw sectors from a volume image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := file.OpenFromPath(args[0], true)
			if err != nil {
				return fmt.Errorf("open image: %w", err)
			}
			defer storage.Close() //nolint:errcheck

			buf := make([]byte, int64(count)*fsys.SectorSize)
			if _, err := storage.ReadAt(buf, int64(sector)*fsys.SectorSize); err != nil {
				return err
			}
			fmt.Print(util.DumpByteSlice(buf, 16, true, true, false, nil))
			return nil
		},
	}
	cmd.Flags().Uint32Var(&sector, "sector", 0, "first sector to dump")
	cmd.Flags().Uint32Var(&count, "count", 1, "number of sectors to dump")
	return cmd
}

func cpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cp IMAGE HOSTPATH VOLPATH",
		Short: "Copy a file from the host filesystem into the volume",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			fs, closeFS, err := openRW(args[0])
			if err != nil {
				return err
			}
			defer closeFS() //nolint:errcheck

			sess := fs.Boot()
			if err := fs.Create(sess, args[2], int64(len(data)), false); err != nil {
				return err
			}
			f, err := fs.Open(sess, args[2])
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = f.Write(data)
			return err
		},
	}
}
