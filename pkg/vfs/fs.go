// Package vfs implements an in-process, in-memory rendition of POSIX
// filesystem semantics: a tree of inodes reachable through directory entries,
// manipulated through a syscall-like surface and composable via mount points
// into a single namespace.
//
// The package contains:
//   - Core types: Inode, Path, Mount, MountTable, FDTable
//   - Capability interfaces: Device, Content (implementations under
//     pkg/vfs/device)
//   - The Filesystem facade: path resolution plus the syscall surface
//   - Errors: ErrorCode taxonomy and FsError
//
// A Filesystem instance is deliberately unsynchronized: path resolution
// performs multiple dependent reads and writes (atime stamping, entry lookup,
// mount substitution) that must be observed atomically. Embedders running
// more than one goroutine against an instance must serialize every call
// behind a single mutual-exclusion boundary per instance.
package vfs

import (
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
)

// maxSymlinkDepth caps symlink expansion during one resolution. Exceeding it
// fails with TooManyLinks.
const maxSymlinkDepth = 40

// Filesystem is the composition point: it resolves paths through the mount
// table and the path parser, applies permission and format checks, mutates
// the inode graph, and drives the descriptor table for byte-stream
// operations.
//
// Per-instance defaults (umask, current working directory) are fields here,
// never process-wide globals, so independent instances cannot interfere.
type Filesystem struct {
	mounts *MountTable
	fds    *FDTable

	root  *Inode
	cwd   *Inode
	umask uint32
}

// InodeView is a read-only snapshot of one inode's attributes, as returned by
// Stat, Lstat and Fstat.
type InodeView struct {
	Ino      uint64
	Mode     uint32
	Nlink    uint32
	UID      uint32
	GID      uint32
	Size     int64
	Atime    time.Time
	Mtime    time.Time
	Ctime    time.Time
	DeviceID uuid.UUID
}

// DirEntry is one explicit directory entry as returned by ReadDir.
type DirEntry struct {
	Name   string
	Ino    uint64
	Format uint32
}

// New constructs a filesystem over rootDev, recording the permanent root
// mount with the given options. Fails with NoRootFilesystem if rootDev is
// nil.
func New(rootDev Device, opts MountOptions) (*Filesystem, error) {
	if rootDev == nil {
		return nil, NewNoRootFilesystemError()
	}

	fs := &Filesystem{
		mounts: NewMountTable(),
		fds:    NewFDTable(),
		root:   rootDev.Root(),
		umask:  DefaultUmask,
	}
	fs.cwd = fs.root

	if _, err := fs.mounts.Add(rootDev, fs.root, opts); err != nil {
		return nil, err
	}
	return fs, nil
}

// Mount grafts dev into the namespace at the directory named by path.
func (fs *Filesystem) Mount(path string, dev Device, opts MountOptions) error {
	if dev == nil {
		return NewInvalidArgumentError("nil device", path)
	}
	mountpoint, err := fs.resolve(path, true)
	if err != nil {
		return err
	}
	if !mountpoint.IsDir() {
		return NewNotDirectoryError(path)
	}
	_, err = fs.mounts.Add(dev, mountpoint, opts)
	return err
}

// ============================================================================
// Path Resolution
// ============================================================================

// resolve walks raw from the working directory (relative) or the namespace
// root (absolute) to the target inode. Each step verifies the current node is
// a directory, stamps its atime unless the governing mount says NoAtime,
// consults the entry table, and crosses mount boundaries in both directions:
// Descend when entering a found node, Ascend when ".." is about to leave a
// device root.
//
// Symlinks encountered mid-path are always expanded; a symlink in final
// position is expanded only when follow is set (Stat semantics; Lstat passes
// follow=false). Expansion re-bases the walk: an absolute target restarts at
// the namespace root, a relative target continues from the directory holding
// the link, and the remaining unresolved segments are re-appended.
func (fs *Filesystem) resolve(raw string, follow bool) (*Inode, error) {
	path := ParsePath(raw)

	cur := fs.cwd
	if path.Absolute() {
		cur = fs.root
	}

	segments := append([]string(nil), path.Segments()...)
	depth := 0

	for i := 0; i < len(segments); {
		seg := segments[i]

		if !cur.IsDir() {
			return nil, NewNotDirectoryError(raw)
		}
		if !fs.mounts.OptionsFor(cur).NoAtime {
			cur.touchAtime(time.Now())
		}

		var next *Inode
		if seg == entryParent {
			// Leaving a mounted device upward resumes at its
			// mountpoint in the parent namespace.
			next = fs.mounts.Ascend(cur).Parent()
		} else {
			child, ok := cur.lookup(seg)
			if !ok {
				return nil, NewNotFoundError(raw)
			}
			next = fs.mounts.Descend(child)
		}

		if next.IsSymlink() && (follow || i < len(segments)-1) {
			depth++
			if depth > maxSymlinkDepth {
				return nil, NewTooManyLinksError(raw)
			}

			target, err := next.Target()
			if err != nil {
				return nil, err
			}
			tpath := ParsePath(target)
			if tpath.Absolute() {
				cur = fs.root
			}
			// Substitute the target for the consumed segment and
			// keep the unresolved remainder.
			rest := segments[i+1:]
			segments = append(append([]string(nil), tpath.Segments()...), rest...)
			i = 0
			continue
		}

		cur = next
		i++
	}

	return cur, nil
}

// resolveParent resolves the directory that holds the final segment of raw
// and returns it together with that segment. Used by every creating and
// unlinking operation.
func (fs *Filesystem) resolveParent(raw string) (*Inode, string, error) {
	path := ParsePath(raw)
	name := path.Basename()
	if name == "" || name == entrySelf || name == entryParent {
		return nil, "", NewInvalidArgumentError("invalid entry name", raw)
	}

	parent, err := fs.resolve(path.Dirname().Full(), true)
	if err != nil {
		return nil, "", err
	}
	if !parent.IsDir() {
		return nil, "", NewNotDirectoryError(raw)
	}
	return parent, name, nil
}

// creationMode computes the effective mode for a new inode under parent:
// defaults masked by the umask when no explicit permissions were requested,
// then sanitized by the governing mount's NoExec/NoSUID flags.
func (fs *Filesystem) creationMode(parent *Inode, format, requested uint32) uint32 {
	perm := requested & (ProtectionMask | PermissionMask)
	if perm == 0 {
		def := DefaultFilePerm
		if format == FormatDirectory {
			def = DefaultDirPerm
		}
		perm = def &^ fs.umask
	}

	opts := fs.mounts.OptionsFor(parent)
	if opts.NoExec {
		perm &^= PermExecute
	}
	if opts.NoSUID {
		perm &^= ModeSetUID
	}

	return format | perm
}

// creationOwner returns the uid/gid a new inode under parent is stamped
// with. The mount's forced ownership, when configured, wins at creation time.
func (fs *Filesystem) creationOwner(parent *Inode) (uint32, uint32) {
	var uid, gid uint32
	opts := fs.mounts.OptionsFor(parent)
	if opts.UID != nil {
		uid = *opts.UID
	}
	if opts.GID != nil {
		gid = *opts.GID
	}
	return uid, gid
}

// createChild allocates an inode of the given format on parent's device and
// binds it under name. The caller has already verified the name is free.
func (fs *Filesystem) createChild(parent *Inode, name string, format, requested uint32) (*Inode, error) {
	dev := fs.mounts.DeviceFor(parent)
	if dev == nil {
		return nil, NewInvalidArgumentError("inode belongs to no mounted device", name)
	}

	uid, gid := fs.creationOwner(parent)
	child, err := dev.Allocate(fs.creationMode(parent, format, requested), uid, gid)
	if err != nil {
		return nil, NewIOError(name, err)
	}

	parent.attach(name, child, time.Now())
	return child, nil
}

// ============================================================================
// Byte-Stream Syscalls
// ============================================================================

// Open resolves (or, with the Create flag, creates) the target and allocates
// a descriptor over its content. Creation requires that the name is not yet
// bound; mode supplies the permission and protection bits, with defaults
// minus umask when zero. Directories may be opened read-only (for Fstat and
// Fchdir); their bytes are not readable and any writing intent fails with
// IsDirectory.
func (fs *Filesystem) Open(path string, flags OpenFlag, mode uint32) (int, error) {
	var ino *Inode

	if flags&Create != 0 {
		parent, name, err := fs.resolveParent(path)
		if err != nil {
			return -1, err
		}
		if _, exists := parent.lookup(name); exists {
			return -1, NewExistsError(path)
		}
		ino, err = fs.createChild(parent, name, FormatRegular, mode)
		if err != nil {
			return -1, err
		}
	} else {
		var err error
		ino, err = fs.resolve(path, true)
		if err != nil {
			return -1, err
		}
	}

	var content Content
	if ino.IsDir() {
		if flags.Writable() || flags&(Create|Truncate|Append) != 0 {
			return -1, NewIsDirectoryError(path)
		}
	} else {
		dev := fs.mounts.DeviceFor(ino)
		if dev == nil {
			return -1, NewInvalidArgumentError("inode belongs to no mounted device", path)
		}
		var err error
		content, err = dev.OpenContent(ino)
		if err != nil {
			return -1, NewIOError(path, err)
		}
	}

	if flags&Truncate != 0 && flags.Writable() {
		if err := content.Truncate(0); err != nil {
			return -1, NewIOError(path, err)
		}
		ino.setSize(0)
		ino.touchModify(time.Now())
	}

	ino.openCount++
	fd := fs.fds.Alloc(&openFile{ino: ino, flags: flags, content: content})
	return fd, nil
}

// Read reads up to max bytes from the descriptor's cursor position. A short
// or empty slice signals end of content. Fails with InvalidArgument unless
// the descriptor was opened for reading.
func (fs *Filesystem) Read(fd int, max int) ([]byte, error) {
	entry, err := fs.fds.Lookup(fd)
	if err != nil {
		return nil, err
	}
	if entry.ino.IsDir() {
		return nil, NewIsDirectoryError("")
	}
	if !entry.flags.Readable() {
		return nil, NewInvalidArgumentError("descriptor not open for reading", "")
	}
	if max < 0 {
		return nil, NewInvalidArgumentError("negative read length", "")
	}

	// Callers pick max freely; never allocate more than the content can
	// satisfy from the cursor position.
	if remaining := entry.content.Size() - entry.offset; remaining < int64(max) {
		if remaining < 0 {
			remaining = 0
		}
		max = int(remaining)
	}

	buf := make([]byte, max)
	n, rerr := entry.content.ReadAt(buf, entry.offset)
	if rerr != nil && rerr != io.EOF {
		return nil, NewIOError("", rerr)
	}
	entry.offset += int64(n)

	if !fs.mounts.OptionsFor(entry.ino).NoAtime {
		entry.ino.touchAtime(time.Now())
	}
	return buf[:n], nil
}

// Write writes data at the descriptor's cursor position (or at end of
// content when opened with Append) and returns the byte count. Fails with
// InvalidArgument unless the descriptor was opened for writing.
func (fs *Filesystem) Write(fd int, data []byte) (int, error) {
	entry, err := fs.fds.Lookup(fd)
	if err != nil {
		return 0, err
	}
	if !entry.flags.Writable() {
		return 0, NewInvalidArgumentError("descriptor not open for writing", "")
	}

	if entry.flags&Append != 0 {
		entry.offset = entry.content.Size()
	}
	n, werr := entry.content.WriteAt(data, entry.offset)
	entry.offset += int64(n)
	entry.ino.setSize(entry.content.Size())
	entry.ino.touchModify(time.Now())

	if werr != nil {
		return n, NewIOError("", werr)
	}
	return n, nil
}

// Seek repositions the descriptor's cursor. Whence follows the io package
// convention (io.SeekStart, io.SeekCurrent, io.SeekEnd). Seeking is
// unconstrained by the open flags; a resulting negative position fails with
// InvalidArgument.
func (fs *Filesystem) Seek(fd int, offset int64, whence int) (int64, error) {
	entry, err := fs.fds.Lookup(fd)
	if err != nil {
		return 0, err
	}

	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = entry.offset
	case io.SeekEnd:
		base = entry.ino.Size()
	default:
		return 0, NewInvalidArgumentError("invalid whence", "")
	}

	pos := base + offset
	if pos < 0 {
		return 0, NewInvalidArgumentError("negative seek position", "")
	}
	entry.offset = pos
	return pos, nil
}

// Close destroys the descriptor, making its handle reusable. An inode whose
// last name was removed while it was open stays fully usable until this
// point; the backing content is released on the last close after the last
// unlink (delete-on-last-close).
func (fs *Filesystem) Close(fd int) error {
	entry, err := fs.fds.Lookup(fd)
	if err != nil {
		return err
	}
	if err := fs.fds.Free(fd); err != nil {
		return err
	}

	ino := entry.ino
	ino.openCount--
	if ino.Nlink() == 0 && ino.openCount == 0 {
		if dev := fs.mounts.DeviceFor(ino); dev != nil {
			if rerr := dev.Release(ino); rerr != nil {
				return NewIOError("", rerr)
			}
		}
	}
	return nil
}

// ============================================================================
// Metadata Syscalls
// ============================================================================

// Stat resolves path, following a final symlink, and returns a snapshot of
// the target inode.
func (fs *Filesystem) Stat(path string) (InodeView, error) {
	ino, err := fs.resolve(path, true)
	if err != nil {
		return InodeView{}, err
	}
	return viewOf(ino), nil
}

// Lstat resolves path without following a final symlink, so a trailing
// symlink yields the link node itself.
func (fs *Filesystem) Lstat(path string) (InodeView, error) {
	ino, err := fs.resolve(path, false)
	if err != nil {
		return InodeView{}, err
	}
	return viewOf(ino), nil
}

// Fstat returns a snapshot of the inode behind an open descriptor.
func (fs *Filesystem) Fstat(fd int) (InodeView, error) {
	entry, err := fs.fds.Lookup(fd)
	if err != nil {
		return InodeView{}, err
	}
	return viewOf(entry.ino), nil
}

// Chmod replaces the permission and protection bits of the target, following
// a final symlink.
func (fs *Filesystem) Chmod(path string, mode uint32) error {
	ino, err := fs.resolve(path, true)
	if err != nil {
		return err
	}
	ino.Chmod(mode, time.Now())
	return nil
}

// Lchmod is Chmod without following a final symlink.
func (fs *Filesystem) Lchmod(path string, mode uint32) error {
	ino, err := fs.resolve(path, false)
	if err != nil {
		return err
	}
	ino.Chmod(mode, time.Now())
	return nil
}

// Fchmod is Chmod through an open descriptor.
func (fs *Filesystem) Fchmod(fd int, mode uint32) error {
	entry, err := fs.fds.Lookup(fd)
	if err != nil {
		return err
	}
	entry.ino.Chmod(mode, time.Now())
	return nil
}

// Chown replaces ownership of the target, following a final symlink. No
// privilege model applies.
func (fs *Filesystem) Chown(path string, uid, gid uint32) error {
	ino, err := fs.resolve(path, true)
	if err != nil {
		return err
	}
	ino.Chown(uid, gid, time.Now())
	return nil
}

// Lchown is Chown without following a final symlink.
func (fs *Filesystem) Lchown(path string, uid, gid uint32) error {
	ino, err := fs.resolve(path, false)
	if err != nil {
		return err
	}
	ino.Chown(uid, gid, time.Now())
	return nil
}

// Fchown is Chown through an open descriptor.
func (fs *Filesystem) Fchown(fd int, uid, gid uint32) error {
	entry, err := fs.fds.Lookup(fd)
	if err != nil {
		return err
	}
	entry.ino.Chown(uid, gid, time.Now())
	return nil
}

// Utimes overrides the access and/or modification times of the target,
// following a final symlink. A nil pointer leaves that timestamp untouched.
func (fs *Filesystem) Utimes(path string, atime, mtime *time.Time) error {
	ino, err := fs.resolve(path, true)
	if err != nil {
		return err
	}
	ino.SetTimes(atime, mtime, time.Now())
	return nil
}

// Umask replaces the instance umask and returns the previous value.
func (fs *Filesystem) Umask(mask uint32) uint32 {
	prev := fs.umask
	fs.umask = mask & PermissionMask
	return prev
}

// CurrentUmask returns the instance umask without changing it.
func (fs *Filesystem) CurrentUmask() uint32 {
	return fs.umask
}

// ============================================================================
// Namespace Syscalls
// ============================================================================

// Mkdir creates a directory at path. Mode supplies permission and protection
// bits, with the directory default minus umask when zero. No descriptor is
// retained.
func (fs *Filesystem) Mkdir(path string, mode uint32) error {
	parent, name, err := fs.resolveParent(path)
	if err != nil {
		return err
	}
	if _, exists := parent.lookup(name); exists {
		return NewExistsError(path)
	}
	_, err = fs.createChild(parent, name, FormatDirectory, mode)
	return err
}

// Link binds the inode at src under a second name dest. Directories cannot
// be hard-linked, and both names must live on the same device.
func (fs *Filesystem) Link(src, dest string) error {
	srcIno, err := fs.resolve(src, true)
	if err != nil {
		return err
	}
	if srcIno.IsDir() {
		return NewIsDirectoryError(src)
	}

	parent, name, err := fs.resolveParent(dest)
	if err != nil {
		return err
	}
	if srcIno.DeviceID() != parent.DeviceID() {
		return NewCrossDeviceError(dest)
	}
	if _, exists := parent.lookup(name); exists {
		return NewExistsError(dest)
	}

	parent.attach(name, srcIno, time.Now())
	return nil
}

// Symlink creates a symbolic link at dest whose target is the fully
// qualified form of src. The target is stored verbatim; it need not resolve
// at creation time.
func (fs *Filesystem) Symlink(src, dest string) error {
	parent, name, err := fs.resolveParent(dest)
	if err != nil {
		return err
	}
	if _, exists := parent.lookup(name); exists {
		return NewExistsError(dest)
	}

	link, err := fs.createChild(parent, name, FormatSymlink, PermissionMask)
	if err != nil {
		return err
	}
	return link.SetTarget(ParsePath(src).Full())
}

// Readlink returns the stored target of the symlink at path. Fails with
// InvalidArgument if the final node is not a symlink.
func (fs *Filesystem) Readlink(path string) (string, error) {
	ino, err := fs.resolve(path, false)
	if err != nil {
		return "", err
	}
	target, err := ino.Target()
	if err != nil {
		return "", NewInvalidArgumentError("not a symbolic link", path)
	}
	return target, nil
}

// Unlink removes the entry for path from its parent directory. Directories
// cannot be unlinked. If the removed name was the inode's last and no
// descriptor holds it open, the backing content is released immediately;
// otherwise release is deferred to the last Close.
func (fs *Filesystem) Unlink(path string) error {
	parent, name, err := fs.resolveParent(path)
	if err != nil {
		return err
	}
	child, exists := parent.lookup(name)
	if !exists {
		return NewNotFoundError(path)
	}
	if child.IsDir() {
		return NewIsDirectoryError(path)
	}

	parent.detach(name, time.Now())

	if child.Nlink() == 0 && child.openCount == 0 {
		if dev := fs.mounts.DeviceFor(child); dev != nil {
			if rerr := dev.Release(child); rerr != nil {
				return NewIOError(path, rerr)
			}
		}
	}
	return nil
}

// Rmdir removes the directory at path. Fails with Busy when the target is a
// namespace or device root (a node parenting itself), with NotDirectory for
// non-directories, and with NotEmpty while explicit children remain.
func (fs *Filesystem) Rmdir(path string) error {
	parent, name, err := fs.resolveParent(path)
	if err != nil {
		// The root has no removable entry; surface Busy rather than
		// the name-validation failure.
		if ParsePath(path).Basename() == "" {
			return NewBusyError(path)
		}
		return err
	}

	child, exists := parent.lookup(name)
	if !exists {
		return NewNotFoundError(path)
	}
	child = fs.mounts.Descend(child)

	if !child.IsDir() {
		return NewNotDirectoryError(path)
	}
	if child.Parent() == child {
		return NewBusyError(path)
	}
	if !child.IsEmptyDir() {
		return NewNotEmptyError(path)
	}

	parent.detach(name, time.Now())
	return nil
}

// Chdir moves the working directory to the directory at path.
func (fs *Filesystem) Chdir(path string) error {
	ino, err := fs.resolve(path, true)
	if err != nil {
		return err
	}
	if !ino.IsDir() {
		return NewNotDirectoryError(path)
	}
	fs.cwd = ino
	return nil
}

// Fchdir moves the working directory to the directory behind an open
// descriptor.
func (fs *Filesystem) Fchdir(fd int) error {
	entry, err := fs.fds.Lookup(fd)
	if err != nil {
		return err
	}
	if !entry.ino.IsDir() {
		return NewNotDirectoryError("")
	}
	fs.cwd = entry.ino
	return nil
}

// Getcwd reconstructs the canonical path of the working directory by walking
// parent links, ascending out of mounted devices where required.
func (fs *Filesystem) Getcwd() (string, error) {
	var segments []string

	cur := fs.cwd
	for cur != fs.root {
		base := fs.mounts.Ascend(cur)
		parent := base.Parent()
		if parent == base {
			break
		}

		name := ""
		for entry, node := range parent.entries {
			if entry == entrySelf || entry == entryParent {
				continue
			}
			if node == base {
				name = entry
				break
			}
		}
		if name == "" {
			return "", NewNotFoundError("working directory detached")
		}

		segments = append([]string{name}, segments...)
		cur = parent
	}

	return Path{segments: segments, absolute: true}.Full(), nil
}

// ReadDir enumerates the explicit entries of the directory at path, sorted
// by name.
func (fs *Filesystem) ReadDir(path string) ([]DirEntry, error) {
	dir, err := fs.resolve(path, true)
	if err != nil {
		return nil, err
	}
	if !dir.IsDir() {
		return nil, NewNotDirectoryError(path)
	}

	names := dir.EntryNames()
	sort.Strings(names)

	entries := make([]DirEntry, 0, len(names))
	for _, name := range names {
		child, _ := dir.lookup(name)
		entries = append(entries, DirEntry{
			Name:   name,
			Ino:    child.Ino(),
			Format: child.Format(),
		})
	}
	return entries, nil
}

func viewOf(ino *Inode) InodeView {
	return InodeView{
		Ino:      ino.Ino(),
		Mode:     ino.Mode(),
		Nlink:    ino.Nlink(),
		UID:      ino.UID(),
		GID:      ino.GID(),
		Size:     ino.Size(),
		Atime:    ino.Atime(),
		Mtime:    ino.Mtime(),
		Ctime:    ino.Ctime(),
		DeviceID: ino.DeviceID(),
	}
}
