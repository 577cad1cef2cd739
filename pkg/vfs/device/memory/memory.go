// Package memory provides the in-memory backing device: inode allocation
// from a per-device sequence and content held in growable byte buffers. It is
// the canonical Device implementation and the one the test suites build on.
package memory

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/virtfs/pkg/vfs"
)

// Device is a map-backed vfs.Device. Content buffers are keyed by inode
// number; directories and symlinks carry no buffer.
type Device struct {
	id   uuid.UUID
	root *vfs.Inode

	mu       sync.Mutex
	nextIno  uint64
	contents map[uint64]*content
}

// Option customizes device construction.
type Option func(*options)

type options struct {
	rootMode uint32
	rootUID  uint32
	rootGID  uint32
}

// WithRootMode overrides the permission and protection bits of the device
// root directory (default 0o755).
func WithRootMode(mode uint32) Option {
	return func(o *options) {
		o.rootMode = mode & (vfs.ProtectionMask | vfs.PermissionMask)
	}
}

// WithRootOwner overrides the ownership of the device root directory
// (default 0/0).
func WithRootOwner(uid, gid uint32) Option {
	return func(o *options) {
		o.rootUID = uid
		o.rootGID = gid
	}
}

// New creates a device with a fresh identity and an empty root directory.
func New(opts ...Option) *Device {
	o := options{rootMode: 0o755}
	for _, opt := range opts {
		opt(&o)
	}

	dev := &Device{
		id:       uuid.New(),
		nextIno:  1,
		contents: make(map[uint64]*content),
	}
	dev.root = vfs.NewInode(dev.id, dev.allocIno(), vfs.FormatDirectory|o.rootMode, o.rootUID, o.rootGID, time.Now())
	return dev
}

// ID returns the device identity.
func (d *Device) ID() uuid.UUID { return d.id }

// Root returns the device root directory inode.
func (d *Device) Root() *vfs.Inode { return d.root }

// Allocate creates a fresh inode and, for content-bearing formats, reserves
// an empty buffer behind it.
func (d *Device) Allocate(mode, uid, gid uint32) (*vfs.Inode, error) {
	ino := vfs.NewInode(d.id, d.allocIno(), mode, uid, gid, time.Now())

	if !ino.IsDir() && !ino.IsSymlink() {
		d.mu.Lock()
		d.contents[ino.Ino()] = &content{}
		d.mu.Unlock()
	}
	return ino, nil
}

// OpenContent returns the buffer behind ino. All descriptors over one inode
// share the same buffer; cursors live in the descriptor table.
func (d *Device) OpenContent(ino *vfs.Inode) (vfs.Content, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	c, ok := d.contents[ino.Ino()]
	if !ok {
		return nil, fmt.Errorf("inode %d has no content on device %s", ino.Ino(), d.id)
	}
	return c, nil
}

// Release drops the buffer behind ino. Safe to call for inodes without
// content.
func (d *Device) Release(ino *vfs.Inode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.contents, ino.Ino())
	return nil
}

func (d *Device) allocIno() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	ino := d.nextIno
	d.nextIno++
	return ino
}

// content is a growable byte buffer satisfying vfs.Content.
type content struct {
	data []byte
}

func (c *content) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(c.data)) {
		return 0, io.EOF
	}
	n := copy(p, c.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (c *content) WriteAt(p []byte, off int64) (int, error) {
	if end := off + int64(len(p)); end > int64(len(c.data)) {
		grown := make([]byte, end)
		copy(grown, c.data)
		c.data = grown
	}
	return copy(c.data[off:], p), nil
}

func (c *content) Truncate(size int64) error {
	switch {
	case size < 0:
		return fmt.Errorf("negative truncate size %d", size)
	case size <= int64(len(c.data)):
		c.data = c.data[:size]
	default:
		grown := make([]byte, size)
		copy(grown, c.data)
		c.data = grown
	}
	return nil
}

func (c *content) Size() int64 {
	return int64(len(c.data))
}
