//go:build !unix

package fsx

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Identity falls back to the resolved absolute path on platforms without a
// usable device+inode pair. Weaker than inode identity, but still catches
// symlink cycles through path resolution; the depth bound covers the rest.
type Identity struct {
	path string
	ok   bool
}

func (id Identity) Valid() bool { return id.ok }

func identityOf(info fs.FileInfo) Identity {
	// lstat metadata carries no resolvable path here; identityAt is used for
	// directories before descent, which is where cycles matter.
	_ = info
	return Identity{}
}

func identityAt(path string) Identity {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return Identity{}
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return Identity{}
	}
	return Identity{path: strings.ToLower(abs), ok: true}
}

// SameObject reports whether two paths resolve to the same filesystem object.
func SameObject(a, b string) bool {
	ida := identityAt(a)
	idb := identityAt(b)
	return ida.Valid() && idb.Valid() && ida == idb
}
