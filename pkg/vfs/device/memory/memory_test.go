package memory

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/virtfs/pkg/vfs"
)

func TestNewDevice(t *testing.T) {
	dev := New()

	root := dev.Root()
	assert.True(t, root.IsDir())
	assert.Equal(t, uint64(1), root.Ino())
	assert.Equal(t, uint32(0o755), root.Mode()&vfs.PermissionMask)
	assert.Equal(t, dev.ID(), root.DeviceID())

	t.Run("identities are unique", func(t *testing.T) {
		assert.NotEqual(t, dev.ID(), New().ID())
	})

	t.Run("root options", func(t *testing.T) {
		custom := New(WithRootMode(0o700), WithRootOwner(10, 20))
		assert.Equal(t, uint32(0o700), custom.Root().Mode()&vfs.PermissionMask)
		assert.Equal(t, uint32(10), custom.Root().UID())
		assert.Equal(t, uint32(20), custom.Root().GID())
	})
}

func TestAllocate(t *testing.T) {
	dev := New()

	file, err := dev.Allocate(vfs.FormatRegular|0o644, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), file.Ino(), "inode numbers are sequential per device")

	dir, err := dev.Allocate(vfs.FormatDirectory|0o755, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), dir.Ino())

	t.Run("only content-bearing formats get a buffer", func(t *testing.T) {
		_, err := dev.OpenContent(file)
		assert.NoError(t, err)

		_, err = dev.OpenContent(dir)
		assert.Error(t, err)

		link, err := dev.Allocate(vfs.FormatSymlink|0o777, 0, 0)
		require.NoError(t, err)
		_, err = dev.OpenContent(link)
		assert.Error(t, err)
	})
}

func TestContentReadWrite(t *testing.T) {
	dev := New()
	file, err := dev.Allocate(vfs.FormatRegular|0o644, 0, 0)
	require.NoError(t, err)

	c, err := dev.OpenContent(file)
	require.NoError(t, err)

	n, err := c.WriteAt([]byte("hello"), 0)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, int64(5), c.Size())

	t.Run("read within bounds", func(t *testing.T) {
		buf := make([]byte, 3)
		n, err := c.ReadAt(buf, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, []byte("ell"), buf)
	})

	t.Run("short read signals eof", func(t *testing.T) {
		buf := make([]byte, 10)
		n, err := c.ReadAt(buf, 2)
		assert.Equal(t, io.EOF, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, []byte("llo"), buf[:n])
	})

	t.Run("read past end", func(t *testing.T) {
		buf := make([]byte, 4)
		n, err := c.ReadAt(buf, 99)
		assert.Equal(t, io.EOF, err)
		assert.Equal(t, 0, n)
	})

	t.Run("sparse write grows with zero fill", func(t *testing.T) {
		n, err := c.WriteAt([]byte("x"), 8)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, int64(9), c.Size())

		buf := make([]byte, 9)
		_, err = c.ReadAt(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello\x00\x00\x00x"), buf)
	})

	t.Run("descriptors share one buffer", func(t *testing.T) {
		again, err := dev.OpenContent(file)
		require.NoError(t, err)
		assert.Equal(t, c.Size(), again.Size())
	})
}

func TestContentTruncate(t *testing.T) {
	dev := New()
	file, err := dev.Allocate(vfs.FormatRegular|0o644, 0, 0)
	require.NoError(t, err)
	c, err := dev.OpenContent(file)
	require.NoError(t, err)

	_, err = c.WriteAt([]byte("0123456789"), 0)
	require.NoError(t, err)

	require.NoError(t, c.Truncate(4))
	assert.Equal(t, int64(4), c.Size())

	require.NoError(t, c.Truncate(6))
	assert.Equal(t, int64(6), c.Size())
	buf := make([]byte, 6)
	_, err = c.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123\x00\x00"), buf)

	assert.Error(t, c.Truncate(-1))
}

func TestRelease(t *testing.T) {
	dev := New()
	file, err := dev.Allocate(vfs.FormatRegular|0o644, 0, 0)
	require.NoError(t, err)

	require.NoError(t, dev.Release(file))
	_, err = dev.OpenContent(file)
	assert.Error(t, err)

	// Releasing an inode without content is a no-op.
	dir, err := dev.Allocate(vfs.FormatDirectory|0o755, 0, 0)
	require.NoError(t, err)
	assert.NoError(t, dev.Release(dir))
}
