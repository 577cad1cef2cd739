package vfs

import (
	"github.com/google/uuid"
)

// MountOptions are the per-mount behavior flags and ownership overrides.
//
// The flags apply transparently at the point of inode access: NoAtime
// suppresses atime stamping during traversal through the mount, NoExec and
// NoSUID sanitize modes at creation time, and UID/GID force the ownership of
// nodes created within the mount. The override applies at creation time only;
// a later chown wins.
type MountOptions struct {
	NoAtime bool
	NoExec  bool
	NoSUID  bool

	// UID and GID, when non-nil, force ownership of inodes created within
	// this mount.
	UID *uint32
	GID *uint32
}

// Mount records one grafted device: the inode it is mounted at, the device,
// the device's root inode, and the mount options.
type Mount struct {
	Mountpoint *Inode
	Dev        Device
	Root       *Inode
	Options    MountOptions
}

// MountTable indexes mounts for the three translations traversal needs:
// descending into a mounted device at its mountpoint, ascending back out of a
// device root via "..", and finding the options governing the device that
// owns an arbitrary inode.
//
// At most one mount may exist per mountpoint inode, and each device may be
// mounted at most once. The root mount exists from construction and is never
// removed.
type MountTable struct {
	byMountpoint map[*Inode]*Mount
	byRoot       map[*Inode]*Mount
	byDevice     map[uuid.UUID]*Mount
}

// NewMountTable creates an empty mount table.
func NewMountTable() *MountTable {
	return &MountTable{
		byMountpoint: make(map[*Inode]*Mount),
		byRoot:       make(map[*Inode]*Mount),
		byDevice:     make(map[uuid.UUID]*Mount),
	}
}

// Add records a mount of dev at mountpoint. Fails with Exists if the inode
// already fronts a mount, whether as a recorded mountpoint or as a mounted
// device's root (the inode path resolution yields for a directory already
// mounted over), and with InvalidArgument if the device is already mounted
// elsewhere.
func (t *MountTable) Add(dev Device, mountpoint *Inode, opts MountOptions) (*Mount, error) {
	if _, ok := t.byMountpoint[mountpoint]; ok {
		return nil, &FsError{Code: ErrExists, Message: "mount already exists at inode"}
	}
	if _, ok := t.byRoot[mountpoint]; ok {
		return nil, &FsError{Code: ErrExists, Message: "mount already exists at inode"}
	}
	if _, ok := t.byDevice[dev.ID()]; ok {
		return nil, NewInvalidArgumentError("device already mounted", "")
	}

	m := &Mount{
		Mountpoint: mountpoint,
		Dev:        dev,
		Root:       dev.Root(),
		Options:    opts,
	}
	t.byMountpoint[mountpoint] = m
	t.byRoot[m.Root] = m
	t.byDevice[dev.ID()] = m
	return m, nil
}

// Descend substitutes the mounted device's root when ino is a mountpoint;
// otherwise it returns ino unchanged. Applied whenever traversal is about to
// move into a node.
func (t *MountTable) Descend(ino *Inode) *Inode {
	if m, ok := t.byMountpoint[ino]; ok && m.Mountpoint != m.Root {
		return m.Root
	}
	return ino
}

// Ascend substitutes the mountpoint inode of the parent namespace when ino is
// some mount's device root; otherwise it returns ino unchanged. Applied
// whenever traversal is about to move upward via "..".
func (t *MountTable) Ascend(ino *Inode) *Inode {
	if m, ok := t.byRoot[ino]; ok && m.Mountpoint != m.Root {
		return m.Mountpoint
	}
	return ino
}

// OptionsFor returns the options of the mount governing the device that owns
// ino. Inodes of an unmounted device fall back to zero options.
func (t *MountTable) OptionsFor(ino *Inode) MountOptions {
	if m, ok := t.byDevice[ino.DeviceID()]; ok {
		return m.Options
	}
	return MountOptions{}
}

// DeviceFor returns the device that owns ino, or nil if its device is not
// mounted.
func (t *MountTable) DeviceFor(ino *Inode) Device {
	if m, ok := t.byDevice[ino.DeviceID()]; ok {
		return m.Dev
	}
	return nil
}

// Mounts returns all recorded mounts in no particular order.
func (t *MountTable) Mounts() []*Mount {
	mounts := make([]*Mount, 0, len(t.byMountpoint))
	for _, m := range t.byMountpoint {
		mounts = append(mounts, m)
	}
	return mounts
}

// Len returns the number of recorded mounts.
func (t *MountTable) Len() int {
	return len(t.byMountpoint)
}
