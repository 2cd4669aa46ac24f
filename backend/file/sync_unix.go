//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package file

import (
	"os"

	"golang.org/x/sys/unix"
)

func fsync(f *os.File) error {
	return unix.Fsync(int(f.Fd()))
}
