package fsys

import "io"

// descriptor is one entry in a Session's file descriptor table: either an
// open File (for a regular file or, per spec's Open Question resolution, a
// directory handle for Open("/")) or an open directory. The reserved fds 0
// and 1 have no entry in the table.
type descriptor struct {
	file *File
	dir  *directory
}

// Session stands in for the spec's external "task/thread context": a
// current working directory held open for the session's lifetime, and a
// per-session file descriptor table with 0 and 1 reserved for console I/O.
// It is the seam the out-of-scope syscall dispatcher would sit behind.
type Session struct {
	fs   *FileSystem
	cwd  *openInode
	fds  map[int]*descriptor
	next int

	stdin  io.Reader
	stdout io.Writer
}

// NewSession creates a session rooted at the filesystem's root directory.
// stdin/stdout are stored on the session for fds 0 and 1; either may be nil.
// Session has no read or write operation on descriptors, so it never reads
// from or writes to them itself.
func (fs *FileSystem) NewSession(stdin io.Reader, stdout io.Writer) (*Session, error) {
	root, err := fs.inodeOpen(RootDirSector)
	if err != nil {
		return nil, err
	}
	return &Session{
		fs:     fs,
		cwd:    root,
		fds:    make(map[int]*descriptor),
		next:   2,
		stdin:  stdin,
		stdout: stdout,
	}, nil
}

// Close releases the session's current-working-directory reference and
// every still-open descriptor, mirroring "on task termination the
// dispatcher iterates the file-descriptor table and closes every live
// handle."
func (s *Session) Close() error {
	for fd := range s.fds {
		s.closeFD(fd) //nolint:errcheck // best-effort, mirrors dispatcher teardown
	}
	if s.cwd != nil {
		err := s.fs.inodeClose(s.cwd)
		s.cwd = nil
		return err
	}
	return nil
}

func (s *Session) closeFD(fd int) error {
	d, ok := s.fds[fd]
	if !ok {
		return ErrClosed
	}
	delete(s.fds, fd)
	if d.file != nil {
		return d.file.Close()
	}
	if d.dir != nil {
		return s.fs.dirClose(d.dir)
	}
	return nil
}

func (s *Session) allocFD(d *descriptor) int {
	for {
		if _, taken := s.fds[s.next]; !taken {
			fd := s.next
			s.fds[fd] = d
			s.next++
			return fd
		}
		s.next++
	}
}
