package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/virtfs/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample virtfs configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/virtfs/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  virtfs init

  # Initialize with custom path
  virtfs init --config /etc/virtfs/config.yaml

  # Force overwrite existing config
  virtfs init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.DefaultPath()
	}

	if err := config.WriteSample(path, initForce); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file to customize your setup")
	fmt.Println("  2. Start the server with: virtfs serve")
	fmt.Printf("  3. Or specify custom config: virtfs serve --config %s\n", path)

	return nil
}
