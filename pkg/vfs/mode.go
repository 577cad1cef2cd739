package vfs

// Mode bits pack three disjoint ranges into one uint32, mirroring the classic
// Unix st_mode layout:
//
//	format     0o170000  what the inode is (regular, directory, symlink, ...)
//	protection 0o007000  set-uid, set-gid, sticky
//	permission 0o000777  read/write/execute for owner/group/other
//
// Format bits are immutable after inode creation. Chmod replaces only the
// protection and permission ranges.
const (
	// FormatMask selects the format range of a mode value.
	FormatMask uint32 = 0o170000

	// FormatRegular marks a regular file.
	FormatRegular uint32 = 0o100000

	// FormatDirectory marks a directory.
	FormatDirectory uint32 = 0o040000

	// FormatSymlink marks a symbolic link.
	FormatSymlink uint32 = 0o120000

	// FormatFIFO marks a named pipe.
	FormatFIFO uint32 = 0o010000

	// FormatCharDevice marks a character device node.
	FormatCharDevice uint32 = 0o020000

	// FormatBlockDevice marks a block device node.
	FormatBlockDevice uint32 = 0o060000

	// FormatSocket marks a socket node.
	FormatSocket uint32 = 0o140000
)

const (
	// ProtectionMask selects the protection range of a mode value.
	ProtectionMask uint32 = 0o7000

	// ModeSetUID is the set-user-id bit.
	ModeSetUID uint32 = 0o4000

	// ModeSetGID is the set-group-id bit.
	ModeSetGID uint32 = 0o2000

	// ModeSticky is the sticky bit.
	ModeSticky uint32 = 0o1000
)

const (
	// PermissionMask selects the permission range of a mode value.
	PermissionMask uint32 = 0o777

	// PermExecute selects the three execute bits.
	PermExecute uint32 = 0o111
)

const (
	// DefaultFilePerm is the creation permission for files when no explicit
	// mode is given, before the umask is applied.
	DefaultFilePerm uint32 = 0o666

	// DefaultDirPerm is the creation permission for directories when no
	// explicit mode is given, before the umask is applied. Execute bits are
	// included so new directories are traversable unless the umask clears
	// them.
	DefaultDirPerm uint32 = 0o777

	// DefaultUmask is the umask a fresh Filesystem starts with.
	DefaultUmask uint32 = 0o022
)

// FormatOf returns the format range of mode.
func FormatOf(mode uint32) uint32 {
	return mode & FormatMask
}

// IsDirMode reports whether mode carries the directory format.
func IsDirMode(mode uint32) bool {
	return FormatOf(mode) == FormatDirectory
}

// IsSymlinkMode reports whether mode carries the symlink format.
func IsSymlinkMode(mode uint32) bool {
	return FormatOf(mode) == FormatSymlink
}

// IsRegularMode reports whether mode carries the regular-file format.
func IsRegularMode(mode uint32) bool {
	return FormatOf(mode) == FormatRegular
}
