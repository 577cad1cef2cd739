package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:8732", cfg.Server.ListenAddr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Server.MetricsEnabled)
	assert.Equal(t, "memory", cfg.Root.Backend)
	assert.Empty(t, cfg.Mounts)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
logging:
  level: DEBUG
  format: json
server:
  listen_addr: 0.0.0.0:9000
  shutdown_timeout: 5s
  metrics_enabled: false
root:
  backend: memory
  noatime: true
mounts:
  - path: /data
    backend: badger
    data_path: /var/lib/virtfs/data
    noexec: true
    uid: 42
    gid: 42
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Server.MetricsEnabled)
	assert.True(t, cfg.Root.NoAtime)

	require.Len(t, cfg.Mounts, 1)
	m := cfg.Mounts[0]
	assert.Equal(t, "/data", m.Path)
	assert.Equal(t, "badger", m.Backend)
	assert.Equal(t, "/var/lib/virtfs/data", m.DataPath)
	assert.True(t, m.NoExec)
	require.NotNil(t, m.UID)
	assert.Equal(t, uint32(42), *m.UID)
	require.NotNil(t, m.GID)
	assert.Equal(t, uint32(42), *m.GID)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("VIRTFS_LOGGING_LEVEL", "ERROR")
	t.Setenv("VIRTFS_SERVER_LISTEN_ADDR", "127.0.0.1:7000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:7000", cfg.Server.ListenAddr)
}

func TestValidate(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		cfg := Default()
		cfg.Root.Backend = "postgres"
		assert.Error(t, cfg.Validate())
	})

	t.Run("badger requires data path", func(t *testing.T) {
		cfg := Default()
		cfg.Root.Backend = "badger"
		assert.Error(t, cfg.Validate())

		cfg.Root.DataPath = "/var/lib/virtfs"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("mount path must be absolute", func(t *testing.T) {
		cfg := Default()
		cfg.Mounts = []MountConfig{{Path: "data", DeviceConfig: DeviceConfig{Backend: "memory"}}}
		assert.Error(t, cfg.Validate())
	})

	t.Run("duplicate mount paths", func(t *testing.T) {
		cfg := Default()
		cfg.Mounts = []MountConfig{
			{Path: "/data", DeviceConfig: DeviceConfig{Backend: "memory"}},
			{Path: "/data", DeviceConfig: DeviceConfig{Backend: "memory"}},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate mount path")
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.Level = "VERBOSE"
		assert.Error(t, cfg.Validate())
	})
}

func TestDeviceConfigOptions(t *testing.T) {
	uid, gid := uint32(7), uint32(8)
	d := DeviceConfig{NoAtime: true, NoSUID: true, UID: &uid, GID: &gid}

	opts := d.Options()
	assert.True(t, opts.NoAtime)
	assert.False(t, opts.NoExec)
	assert.True(t, opts.NoSUID)
	require.NotNil(t, opts.UID)
	assert.Equal(t, uid, *opts.UID)
	require.NotNil(t, opts.GID)
	assert.Equal(t, gid, *opts.GID)
}

func TestWriteSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "virtfs", "config.yaml")

	require.NoError(t, WriteSample(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	// The sample serializes the nil mount list as an empty one; loading
	// must land back on the defaults exactly.
	assert.Nil(t, cfg.Mounts)
	assert.Equal(t, Default(), cfg)

	t.Run("refuses to overwrite", func(t *testing.T) {
		err := WriteSample(path, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("force overwrites", func(t *testing.T) {
		assert.NoError(t, WriteSample(path, true))
	})
}
