package vfs

import (
	"time"

	"github.com/google/uuid"
)

// Implicit directory entries. Every directory entry table contains both from
// creation; "empty" means exactly these two.
const (
	entrySelf   = "."
	entryParent = ".."
)

// Inode is the fundamental filesystem node: packed format/permission bits,
// ownership, timestamps, size, a back-reference to its parent, and a
// format-dependent payload (directory entry table, symlink target, or
// device-owned content addressed by the inode number).
//
// The inode graph is owned by the directory entry tables: an inode is
// reachable only through names bound in some directory, except while held
// open through a file descriptor. The parent back-reference is non-owning;
// the root of a device parents itself.
type Inode struct {
	ino      uint64
	mode     uint32
	uid, gid uint32

	atime time.Time
	mtime time.Time
	ctime time.Time

	size     int64
	deviceID uuid.UUID

	parent *Inode
	nlink  uint32

	// openCount tracks live descriptors so content release of an unlinked
	// inode can be deferred to the last close.
	openCount int

	// entries is the directory entry table; nil unless the format is
	// directory. Always contains the two implicit entries.
	entries map[string]*Inode

	// target is the symlink target string; empty unless the format is
	// symlink.
	target string
}

// NewInode constructs an inode with the given identity and stamps its
// timestamps to now. Directory inodes start with the implicit self and parent
// entries, both pointing at the inode itself until it is attached under a
// parent; a detached directory therefore behaves like a root.
func NewInode(deviceID uuid.UUID, ino uint64, mode, uid, gid uint32, now time.Time) *Inode {
	node := &Inode{
		ino:      ino,
		mode:     mode,
		uid:      uid,
		gid:      gid,
		atime:    now,
		mtime:    now,
		ctime:    now,
		deviceID: deviceID,
	}
	node.parent = node

	if node.IsDir() {
		node.entries = map[string]*Inode{
			entrySelf:   node,
			entryParent: node,
		}
		node.nlink = 2
	}

	return node
}

// Ino returns the device-scoped inode number.
func (n *Inode) Ino() uint64 { return n.ino }

// Mode returns the packed format+protection+permission bits.
func (n *Inode) Mode() uint32 { return n.mode }

// Format returns the format range of the mode.
func (n *Inode) Format() uint32 { return FormatOf(n.mode) }

// IsDir reports whether the inode is a directory.
func (n *Inode) IsDir() bool { return IsDirMode(n.mode) }

// IsSymlink reports whether the inode is a symbolic link.
func (n *Inode) IsSymlink() bool { return IsSymlinkMode(n.mode) }

// IsRegular reports whether the inode is a regular file.
func (n *Inode) IsRegular() bool { return IsRegularMode(n.mode) }

// UID returns the owner user id.
func (n *Inode) UID() uint32 { return n.uid }

// GID returns the owner group id.
func (n *Inode) GID() uint32 { return n.gid }

// Size returns the content length. Authoritative for regular files,
// informational for directories and symlinks.
func (n *Inode) Size() int64 { return n.size }

// DeviceID identifies the backing device that owns this inode. Hard links
// across devices are forbidden.
func (n *Inode) DeviceID() uuid.UUID { return n.deviceID }

// Parent returns the containing directory's inode. A root parents itself.
func (n *Inode) Parent() *Inode { return n.parent }

// Nlink returns the number of names referencing this inode. Zero means the
// inode has been unlinked and survives only through open descriptors.
func (n *Inode) Nlink() uint32 { return n.nlink }

// Atime returns the last access time.
func (n *Inode) Atime() time.Time { return n.atime }

// Mtime returns the last content modification time.
func (n *Inode) Mtime() time.Time { return n.mtime }

// Ctime returns the last metadata change time.
func (n *Inode) Ctime() time.Time { return n.ctime }

// Target returns the symlink target string. Fails with InvalidArgument if
// the inode is not a symlink.
func (n *Inode) Target() (string, error) {
	if !n.IsSymlink() {
		return "", NewInvalidArgumentError("not a symbolic link", "")
	}
	return n.target, nil
}

// SetTarget stores the symlink target string. Fails with InvalidArgument if
// the inode is not a symlink.
func (n *Inode) SetTarget(target string) error {
	if !n.IsSymlink() {
		return NewInvalidArgumentError("not a symbolic link", "")
	}
	n.target = target
	n.size = int64(len(target))
	return nil
}

// Chmod replaces the permission and protection ranges, preserving the format
// range, and stamps ctime.
func (n *Inode) Chmod(mode uint32, now time.Time) {
	n.mode = (n.mode & FormatMask) | (mode & (ProtectionMask | PermissionMask))
	n.ctime = now
}

// Chown replaces ownership and stamps ctime. No privilege model applies: any
// caller may chown.
func (n *Inode) Chown(uid, gid uint32, now time.Time) {
	n.uid = uid
	n.gid = gid
	n.ctime = now
}

// SetTimes overrides atime and/or mtime; nil leaves a timestamp untouched.
// ctime is stamped to now.
func (n *Inode) SetTimes(atime, mtime *time.Time, now time.Time) {
	if atime != nil {
		n.atime = *atime
	}
	if mtime != nil {
		n.mtime = *mtime
	}
	n.ctime = now
}

func (n *Inode) touchAtime(now time.Time) {
	n.atime = now
}

func (n *Inode) touchModify(now time.Time) {
	n.mtime = now
	n.ctime = now
}

func (n *Inode) setSize(size int64) {
	n.size = size
}

// ============================================================================
// Directory Entry Table
// ============================================================================

// lookup resolves name in the entry table, implicit entries included.
func (n *Inode) lookup(name string) (*Inode, bool) {
	if n.entries == nil {
		return nil, false
	}
	child, ok := n.entries[name]
	return child, ok
}

// attach binds child under name and fixes up back-references. The caller has
// already validated that the inode is a directory, the name is free, and the
// devices match.
//
// Link accounting follows the classic convention: a directory's nlink is
// 2 + its subdirectory count (the 2 covering its name and its own "."); a
// non-directory's nlink is its name count.
func (n *Inode) attach(name string, child *Inode, now time.Time) {
	n.entries[name] = child

	if child.IsDir() {
		child.parent = n
		child.entries[entryParent] = n
		n.nlink++ // the child's ".." entry
	} else {
		child.nlink++
		if child.parent == child {
			// First name for a non-directory; later hard links keep
			// the original back-reference.
			child.parent = n
		}
	}

	n.touchModify(now)
}

// detach removes the binding for name and drops the reference count. The
// caller has already validated existence and format constraints.
func (n *Inode) detach(name string, now time.Time) {
	child := n.entries[name]
	delete(n.entries, name)

	if child.IsDir() {
		n.nlink--
		child.nlink = 0
	} else if child.nlink > 0 {
		child.nlink--
	}
	child.ctime = now

	n.touchModify(now)
}

// IsEmptyDir reports whether the entry table holds exactly the two implicit
// entries.
func (n *Inode) IsEmptyDir() bool {
	return n.entries != nil && len(n.entries) == 2
}

// EntryNames returns the explicit entry names (implicit self and parent
// excluded), in no particular order.
func (n *Inode) EntryNames() []string {
	if n.entries == nil {
		return nil
	}
	names := make([]string, 0, len(n.entries)-2)
	for name := range n.entries {
		if name == entrySelf || name == entryParent {
			continue
		}
		names = append(names, name)
	}
	return names
}
