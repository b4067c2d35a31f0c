//go:build unix

package fsx

import (
	"io/fs"
	"os"
	"syscall"
)

// Identity names a filesystem object independently of the path used to reach
// it: device plus inode. Two paths with equal valid identities refer to the
// same object.
type Identity struct {
	Dev uint64
	Ino uint64
	ok  bool
}

// Valid reports whether the identity was resolved. Cycle detection is skipped
// for invalid identities; the depth bound still applies.
func (id Identity) Valid() bool { return id.ok }

func identityOf(info fs.FileInfo) Identity {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return Identity{}
	}
	return Identity{Dev: uint64(stat.Dev), Ino: uint64(stat.Ino), ok: true}
}

// identityAt resolves the identity of the object path points at, following
// symlinks.
func identityAt(path string) Identity {
	info, err := os.Stat(path)
	if err != nil {
		return Identity{}
	}
	return identityOf(info)
}

// SameObject reports whether two paths resolve to the same filesystem object.
func SameObject(a, b string) bool {
	ida := identityAt(a)
	idb := identityAt(b)
	return ida.Valid() && idb.Valid() && ida == idb
}
