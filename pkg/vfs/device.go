package vfs

import "github.com/google/uuid"

// Device is the backing-storage capability a filesystem mounts. It allocates
// inodes, owns the bytes behind non-directory inodes, and reports the root of
// its tree.
//
// Implementations live under pkg/vfs/device; anything satisfying this
// interface (in-memory maps, an embedded KV store, a network store) is
// mountable.
type Device interface {
	// ID returns the stable identity of this device. Every inode the device
	// allocates carries it, and hard links are confined to one device ID.
	ID() uuid.UUID

	// Root returns the topmost inode of the device's tree. The root parents
	// itself.
	Root() *Inode

	// Allocate creates a fresh inode of the given packed mode with the
	// designated owner. For content-bearing formats the device reserves
	// backing storage addressed by the inode number.
	Allocate(mode, uid, gid uint32) (*Inode, error)

	// OpenContent returns a handle onto the bytes behind ino. Fails for
	// formats without content (directories, symlinks).
	OpenContent(ino *Inode) (Content, error)

	// Release drops the backing storage behind ino. Called when the last
	// name and the last open descriptor are gone.
	Release(ino *Inode) error
}

// Content is a readable, writable, sizeable handle onto one inode's bytes.
// Cursor state lives in the file descriptor table, not the handle, so
// independent descriptors over the same inode do not interfere.
type Content interface {
	// ReadAt reads up to len(p) bytes starting at off. It returns io.EOF
	// when off is at or past the end of content.
	ReadAt(p []byte, off int64) (int, error)

	// WriteAt writes p starting at off, zero-filling any gap past the
	// current end.
	WriteAt(p []byte, off int64) (int, error)

	// Truncate resizes the content to size.
	Truncate(size int64) error

	// Size returns the current content length.
	Size() int64
}
