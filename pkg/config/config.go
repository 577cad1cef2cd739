// Package config loads and validates the virtfs configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (VIRTFS_*)
//  2. Configuration file (YAML)
//  3. Default values
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/virtfs/pkg/vfs"
)

// Config is the full virtfs configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server configures the HTTP syscall adapter.
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Root configures the device backing the namespace root.
	Root DeviceConfig `mapstructure:"root" yaml:"root"`

	// Mounts are additional devices grafted into the namespace at startup.
	Mounts []MountConfig `mapstructure:"mounts" yaml:"mounts"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  validate:"omitempty,oneof=DEBUG INFO WARN ERROR" yaml:"level"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=text json"             yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// ServerConfig configures the HTTP adapter.
type ServerConfig struct {
	// ListenAddr is the address the HTTP adapter binds to.
	ListenAddr string `mapstructure:"listen_addr" validate:"required" yaml:"listen_addr"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// MetricsEnabled exposes Prometheus metrics on /metrics.
	MetricsEnabled bool `mapstructure:"metrics_enabled" yaml:"metrics_enabled"`
}

// DeviceConfig selects and tunes one backing device.
type DeviceConfig struct {
	// Backend is the device implementation: memory or badger.
	Backend string `mapstructure:"backend" validate:"required,oneof=memory badger" yaml:"backend"`

	// DataPath is the badger data directory; required for the badger
	// backend.
	DataPath string `mapstructure:"data_path" validate:"required_if=Backend badger" yaml:"data_path,omitempty"`

	// NoAtime suppresses atime stamping on traversal within this mount.
	NoAtime bool `mapstructure:"noatime" yaml:"noatime"`

	// NoExec clears execute bits on creation within this mount.
	NoExec bool `mapstructure:"noexec" yaml:"noexec"`

	// NoSUID clears the set-uid bit on creation within this mount.
	NoSUID bool `mapstructure:"nosuid" yaml:"nosuid"`

	// UID and GID, when set, force ownership of nodes created within this
	// mount.
	UID *uint32 `mapstructure:"uid" yaml:"uid,omitempty"`
	GID *uint32 `mapstructure:"gid" yaml:"gid,omitempty"`
}

// MountConfig grafts one additional device at a namespace path.
type MountConfig struct {
	// Path is the absolute mountpoint path; the directory is created at
	// startup if missing.
	Path string `mapstructure:"path" validate:"required,startswith=/" yaml:"path"`

	DeviceConfig `mapstructure:",squash" yaml:",inline"`
}

// Options converts the device flags into vfs.MountOptions.
func (d DeviceConfig) Options() vfs.MountOptions {
	return vfs.MountOptions{
		NoAtime: d.NoAtime,
		NoExec:  d.NoExec,
		NoSUID:  d.NoSUID,
		UID:     d.UID,
		GID:     d.GID,
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stderr",
		},
		Server: ServerConfig{
			ListenAddr:      "127.0.0.1:8732",
			ShutdownTimeout: 10 * time.Second,
			MetricsEnabled:  true,
		},
		Root: DeviceConfig{
			Backend: "memory",
		},
	}
}

// DefaultPath returns the default config file location,
// $XDG_CONFIG_HOME/virtfs/config.yaml.
func DefaultPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "virtfs", "config.yaml")
}

// Load reads configuration from path (or the default location when path is
// empty), layers VIRTFS_* environment variables on top, and validates the
// result. A missing file at the default location is not an error; defaults
// apply.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("VIRTFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := decode(v.AllSettings(), cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	// An absent mounts section and an explicit empty list mean the same thing.
	if len(cfg.Mounts) == 0 {
		cfg.Mounts = nil
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration against its struct tags plus the
// cross-field constraints tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	seen := make(map[string]bool, len(c.Mounts))
	for _, m := range c.Mounts {
		if seen[m.Path] {
			return fmt.Errorf("invalid configuration: duplicate mount path %s", m.Path)
		}
		seen[m.Path] = true
	}
	return nil
}

// WriteSample writes the default configuration as YAML to path. Fails if the
// file exists unless force is set.
func WriteSample(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
		}
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to render sample config: %w", err)
	}

	header := "# virtfs configuration.\n# Values may be overridden with VIRTFS_* environment variables.\n\n"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.output", def.Logging.Output)
	v.SetDefault("server.listen_addr", def.Server.ListenAddr)
	v.SetDefault("server.shutdown_timeout", def.Server.ShutdownTimeout)
	v.SetDefault("server.metrics_enabled", def.Server.MetricsEnabled)
	v.SetDefault("root.backend", def.Root.Backend)
}

// decode maps viper's settings onto the config struct with the duration hook
// the file format needs.
func decode(settings map[string]any, out *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(settings)
}
