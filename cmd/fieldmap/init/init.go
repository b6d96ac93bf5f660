// Package initcmder provides the init command for initializing the
// fieldmap artifacts directory and config file.
package initcmder

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clinforge/fieldmap/pkg/config"
)

const initLongDesc string = `Initialize the fieldmap artifacts directory with a default config.toml.

Creates the artifacts directory if missing and writes a config file
holding the default artifact locations, embedding provider, and
reranker hyperparameters for later editing.

Examples:
  fieldmap init
  fieldmap init -a ./study42-artifacts`

const initShortDesc string = "Initialize the artifacts directory and config"

func NewInitCmd() *cobra.Command {
	var artifactsDir string
	fs := config.DefaultFlagSet()

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInit(artifactsDir)
		},
	}

	config.AddStringFlag(cmd, fs, config.FlagArtifactsDir, &artifactsDir)

	return cmd
}

func runInit(dir string) error {
	cfg := config.NewDefaultConfig()
	cfg.Artifacts.Dir = dir

	path := config.ConfigPath(dir)
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("Already initialized: %s\n", path)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifacts directory: %w", err)
	}
	if err := config.SaveConfig(dir, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Printf("Initialized fieldmap artifacts directory: %s\n", dir)
	return nil
}
