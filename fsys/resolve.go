package fsys

import "strings"

// resolved is the result of walking a path down to its last component: the
// open parent directory plus the leaf name within it. The caller owns
// closing parent.
type resolved struct {
	parent *directory
	leaf   string
}

// resolveParent implements spec.md §4.E: tokenize on '/', skipping empty
// tokens (consecutive or trailing slashes), walk every component but the
// last through dirLookup, and return the open parent directory and leaf
// name. It never looks the leaf up itself — callers that need the leaf's
// inode do one more dirLookup themselves (see resolveLeaf), matching the
// spec's resolution of "should filesys_open receive the leaf name or the
// full path" in favor of the leaf name.
func (fs *FileSystem) resolveParent(sess *Session, name string) (*resolved, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	start, err := fs.startDir(sess, name)
	if err != nil {
		return nil, err
	}

	tokens := splitPath(name)
	cur := start

	if len(tokens) == 0 {
		// Either "/" or "" after stripping the leading slash/relative
		// marker: spec.md says a trailing slash with root as start yields
		// the root directory itself, used by open("/").
		return &resolved{parent: cur, leaf: ""}, nil
	}

	for _, tok := range tokens[:len(tokens)-1] {
		next, err := fs.descend(cur, tok)
		if err != nil {
			fs.dirClose(cur) //nolint:errcheck // best-effort on an already-failing path
			return nil, err
		}
		fs.dirClose(cur) //nolint:errcheck
		cur = next
	}

	return &resolved{parent: cur, leaf: tokens[len(tokens)-1]}, nil
}

// resolveLeaf resolves name all the way down to the inode it names (for
// open/chdir), doing the parent walk then one more dirLookup for the leaf.
// Remove stops at the parent and lets dirRemove find the leaf.
func (fs *FileSystem) resolveLeaf(sess *Session, name string) (*openInode, bool, error) {
	r, err := fs.resolveParent(sess, name)
	if err != nil {
		return nil, false, err
	}
	defer fs.dirClose(r.parent) //nolint:errcheck

	if r.leaf == "" {
		// Trailing-slash-only case: the parent IS the target (open("/")).
		return fs.inodeReopen(r.parent.inode), true, nil
	}
	oi, ok, err := fs.dirLookup(r.parent, r.leaf)
	if err != nil || !ok {
		return nil, false, err
	}
	return oi, true, nil
}

func (fs *FileSystem) startDir(sess *Session, name string) (*directory, error) {
	if strings.HasPrefix(name, "/") {
		return fs.dirOpenRoot()
	}
	if sess != nil && sess.cwd != nil {
		return dirOpen(fs.inodeReopen(sess.cwd)), nil
	}
	return fs.dirOpenRoot()
}

// descend looks up tok in cur (a directory) and opens it as the next
// directory to walk into, failing if tok is missing, not a directory, or
// has already been removed.
func (fs *FileSystem) descend(cur *directory, tok string) (*directory, error) {
	oi, ok, err := fs.dirLookup(cur, tok)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	if !oi.disk.isDir {
		fs.inodeClose(oi) //nolint:errcheck
		return nil, ErrNotDir
	}
	if oi.removed {
		fs.inodeClose(oi) //nolint:errcheck
		return nil, ErrRemoved
	}
	return dirOpen(oi), nil
}

// splitPath tokenizes name on '/', dropping empty tokens produced by
// leading/consecutive/trailing slashes.
func splitPath(name string) []string {
	parts := strings.Split(name, "/")
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
