package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/virtfs/internal/logger"
	"github.com/marmos91/virtfs/pkg/api"
	"github.com/marmos91/virtfs/pkg/config"
	"github.com/marmos91/virtfs/pkg/vfs"
	badgerdev "github.com/marmos91/virtfs/pkg/vfs/device/badger"
	memorydev "github.com/marmos91/virtfs/pkg/vfs/device/memory"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the virtfs syscall API server",
	Long: `Start the virtfs server: assemble the filesystem from the configured
devices, mount them into the namespace, and serve the syscall API over HTTP.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/virtfs/config.yaml.

Examples:
  # Start with default config location
  virtfs serve

  # Start with custom config file
  virtfs serve --config /etc/virtfs/config.yaml

  # Override config via environment variables
  VIRTFS_LOGGING_LEVEL=DEBUG virtfs serve`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := initLogger(cfg); err != nil {
		return err
	}

	logger.Info("configuration loaded", "source", configSource(GetConfigFile()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fs, cleanup, err := assembleFilesystem(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	server := api.NewServer(fs, api.Config{
		ListenAddr:      cfg.Server.ListenAddr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MetricsEnabled:  cfg.Server.MetricsEnabled,
	})

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// assembleFilesystem builds the root device, creates the filesystem, and
// grafts any additional configured mounts. The returned cleanup closes every
// persistent device.
func assembleFilesystem(cfg *config.Config) (*vfs.Filesystem, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	rootDev, closer, err := openDevice(cfg.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open root device: %w", err)
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	fs, err := vfs.New(rootDev, cfg.Root.Options())
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Info("root device mounted",
		logger.KeyDevice, rootDev.ID().String(),
		"backend", cfg.Root.Backend,
	)

	for _, m := range cfg.Mounts {
		dev, closer, err := openDevice(m.DeviceConfig)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to open device for %s: %w", m.Path, err)
		}
		if closer != nil {
			closers = append(closers, closer)
		}

		// The mountpoint directory must exist before grafting.
		if err := fs.Mkdir(m.Path, 0); err != nil && vfs.CodeOf(err) != vfs.ErrExists {
			cleanup()
			return nil, nil, fmt.Errorf("failed to create mountpoint %s: %w", m.Path, err)
		}
		if err := fs.Mount(m.Path, dev, m.Options()); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to mount %s: %w", m.Path, err)
		}
		logger.Info("device mounted",
			logger.KeyPath, m.Path,
			logger.KeyDevice, dev.ID().String(),
			"backend", m.Backend,
		)
	}

	return fs, cleanup, nil
}

// openDevice constructs one backing device from its configuration. The
// returned closer is nil for devices without persistent state.
func openDevice(cfg config.DeviceConfig) (vfs.Device, func(), error) {
	switch cfg.Backend {
	case "memory":
		return memorydev.New(), nil, nil

	case "badger":
		dev, err := badgerdev.Open(badgerdev.Config{Path: cfg.DataPath})
		if err != nil {
			return nil, nil, err
		}
		closer := func() {
			if err := dev.Close(); err != nil {
				logger.Error("failed to close badger device", logger.KeyError, err.Error())
			}
		}
		return dev, closer, nil

	default:
		return nil, nil, fmt.Errorf("unknown device backend: %s", cfg.Backend)
	}
}

// initLogger initializes the structured logger from configuration.
func initLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// configSource describes where the configuration was loaded from.
func configSource(path string) string {
	if path != "" {
		return path
	}
	if _, err := os.Stat(config.DefaultPath()); err == nil {
		return config.DefaultPath()
	}
	return "defaults"
}
