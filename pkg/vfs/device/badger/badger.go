// Package badger provides a BadgerDB-backed vfs.Device. The device identity,
// the inode-number sequence, and all content bytes live in the database, so
// file content survives process restarts; the inode graph itself is rebuilt
// per filesystem instance by whoever mounts the device.
package badger

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/virtfs/internal/logger"
	"github.com/marmos91/virtfs/pkg/vfs"
)

// Device is a badger-backed vfs.Device.
type Device struct {
	db   *badgerdb.DB
	seq  *badgerdb.Sequence
	id   uuid.UUID
	root *vfs.Inode
}

// Config controls device construction.
type Config struct {
	// Path is the badger data directory.
	Path string

	// RootMode overrides the permission bits of the root directory
	// (default 0o755).
	RootMode uint32

	// SyncWrites forces fsync on every write transaction.
	SyncWrites bool
}

// Open opens (or initializes) the device at cfg.Path.
func Open(cfg Config) (*Device, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("badger device: path is required")
	}

	opts := badgerdb.DefaultOptions(cfg.Path).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{})

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger device at %s: %w", cfg.Path, err)
	}

	seq, err := db.GetSequence(keySequence(), 128)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open inode sequence: %w", err)
	}

	dev := &Device{db: db, seq: seq}
	if err := dev.loadOrCreateIdentity(); err != nil {
		_ = seq.Release()
		_ = db.Close()
		return nil, err
	}

	rootMode := cfg.RootMode & (vfs.ProtectionMask | vfs.PermissionMask)
	if rootMode == 0 {
		rootMode = 0o755
	}
	rootIno, err := dev.nextIno()
	if err != nil {
		_ = seq.Release()
		_ = db.Close()
		return nil, err
	}
	dev.root = vfs.NewInode(dev.id, rootIno, vfs.FormatDirectory|rootMode, 0, 0, time.Now())

	logger.Debug("badger device opened", logger.KeyDevice, dev.id.String(), "path", cfg.Path)
	return dev, nil
}

// Close releases the inode sequence and closes the database.
func (d *Device) Close() error {
	if err := d.seq.Release(); err != nil {
		_ = d.db.Close()
		return fmt.Errorf("failed to release inode sequence: %w", err)
	}
	return d.db.Close()
}

// ID returns the persistent device identity.
func (d *Device) ID() uuid.UUID { return d.id }

// Root returns the device root directory inode.
func (d *Device) Root() *vfs.Inode { return d.root }

// Allocate creates a fresh inode and, for content-bearing formats, an empty
// value behind it.
func (d *Device) Allocate(mode, uid, gid uint32) (*vfs.Inode, error) {
	ino, err := d.nextIno()
	if err != nil {
		return nil, err
	}
	node := vfs.NewInode(d.id, ino, mode, uid, gid, time.Now())

	if !node.IsDir() && !node.IsSymlink() {
		err := d.db.Update(func(txn *badgerdb.Txn) error {
			return txn.Set(keyContent(ino), nil)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to reserve content for inode %d: %w", ino, err)
		}
	}
	return node, nil
}

// OpenContent returns a handle onto the value behind ino.
func (d *Device) OpenContent(ino *vfs.Inode) (vfs.Content, error) {
	err := d.db.View(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(keyContent(ino.Ino()))
		return err
	})
	if err == badgerdb.ErrKeyNotFound {
		return nil, fmt.Errorf("inode %d has no content on device %s", ino.Ino(), d.id)
	}
	if err != nil {
		return nil, err
	}
	return &content{db: d.db, key: keyContent(ino.Ino())}, nil
}

// Release deletes the value behind ino. Safe to call for inodes without
// content.
func (d *Device) Release(ino *vfs.Inode) error {
	return d.db.Update(func(txn *badgerdb.Txn) error {
		err := txn.Delete(keyContent(ino.Ino()))
		if err == badgerdb.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

func (d *Device) nextIno() (uint64, error) {
	n, err := d.seq.Next()
	if err != nil {
		return 0, fmt.Errorf("inode sequence exhausted: %w", err)
	}
	// Sequence starts at 0; inode numbers start at 1.
	return n + 1, nil
}

// loadOrCreateIdentity reads the device UUID, minting and persisting one on
// first open.
func (d *Device) loadOrCreateIdentity() error {
	return d.db.Update(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyIdentity())
		if err == badgerdb.ErrKeyNotFound {
			d.id = uuid.New()
			return txn.Set(keyIdentity(), d.id[:])
		}
		if err != nil {
			return fmt.Errorf("failed to read device identity: %w", err)
		}
		return item.Value(func(val []byte) error {
			id, err := uuid.FromBytes(val)
			if err != nil {
				return fmt.Errorf("corrupt device identity: %w", err)
			}
			d.id = id
			return nil
		})
	})
}

// ============================================================================
// Content Handle
// ============================================================================

// content implements vfs.Content over one badger value. Each operation is a
// read-modify-write transaction; the handle itself is stateless.
type content struct {
	db  *badgerdb.DB
	key []byte
}

func (c *content) ReadAt(p []byte, off int64) (int, error) {
	var n int
	var eof bool

	err := c.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(c.key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if off >= int64(len(val)) {
				eof = true
				return nil
			}
			n = copy(p, val[off:])
			if n < len(p) {
				eof = true
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	if eof {
		return n, io.EOF
	}
	return n, nil
}

func (c *content) WriteAt(p []byte, off int64) (int, error) {
	var n int
	err := c.db.Update(func(txn *badgerdb.Txn) error {
		cur, err := c.load(txn)
		if err != nil {
			return err
		}
		end := off + int64(len(p))
		if end > int64(len(cur)) {
			grown := make([]byte, end)
			copy(grown, cur)
			cur = grown
		}
		n = copy(cur[off:], p)
		return txn.Set(c.key, cur)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (c *content) Truncate(size int64) error {
	if size < 0 {
		return fmt.Errorf("negative truncate size %d", size)
	}
	return c.db.Update(func(txn *badgerdb.Txn) error {
		cur, err := c.load(txn)
		if err != nil {
			return err
		}
		if size <= int64(len(cur)) {
			cur = cur[:size]
		} else {
			grown := make([]byte, size)
			copy(grown, cur)
			cur = grown
		}
		return txn.Set(c.key, cur)
	})
}

func (c *content) Size() int64 {
	var size int64
	_ = c.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(c.key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			size = int64(len(val))
			return nil
		})
	})
	return size
}

func (c *content) load(txn *badgerdb.Txn) ([]byte, error) {
	item, err := txn.Get(c.key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// ============================================================================
// Keys
// ============================================================================

// keyContent generates the key for an inode's content: "c:<ino>".
func keyContent(ino uint64) []byte {
	key := make([]byte, 2+8)
	copy(key, "c:")
	binary.BigEndian.PutUint64(key[2:], ino)
	return key
}

// keyIdentity is the key for the device UUID: "meta:id".
func keyIdentity() []byte {
	return []byte("meta:id")
}

// keySequence is the key backing the inode-number sequence: "meta:seq".
func keySequence() []byte {
	return []byte("meta:seq")
}

// ============================================================================
// Logger Bridge
// ============================================================================

// badgerLogger forwards badger's internal logging into the process logger at
// debug level, keeping badger chatter out of normal output.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logger.Error("badger: " + fmt.Sprintf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...any) {
	logger.Warn("badger: " + fmt.Sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...any) {
	logger.Debug("badger: " + fmt.Sprintf(format, args...))
}

func (badgerLogger) Debugf(format string, args ...any) {
	logger.Debug("badger: " + fmt.Sprintf(format, args...))
}
