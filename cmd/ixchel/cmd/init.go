package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/ixchel/internal/config"
	"github.com/kevinmichaelchen/ixchel/internal/ixerr"
	"github.com/kevinmichaelchen/ixchel/internal/output"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize an ixchel index in a directory",
		Long: `Creates the .ixchel index directory alongside the source
directory, writing a default ixchel.toml configuration. Run this once per
project before 'ixchel sync'.`,
		Example: `  ixchel init
  ixchel init --directory ./docs
  ixchel init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, directory, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	indexRoot := config.IndexRoot(dir)
	configExists := fileExists(configFilePath(dir))

	if configExists && !force {
		return ixerr.New(ixerr.KindNotInitialized,
			fmt.Sprintf("%s already exists; pass --force to overwrite", configFilePath(dir)), nil)
	}

	cfg := config.New()
	if err := cfg.Save(configFilePath(dir)); err != nil {
		return ixerr.Wrap(ixerr.KindIO, err)
	}

	if err := os.MkdirAll(cfg.StorageRoot(dir), 0o755); err != nil {
		return ixerr.Wrap(ixerr.KindIO, err)
	}

	out.Success(fmt.Sprintf("Initialized ixchel index at %s", indexRoot))
	out.Status("", fmt.Sprintf("Configuration written to %s", configFilePath(dir)))
	out.Status("", "Run 'ixchel sync' to build the index.")
	return nil
}

func configFilePath(dir string) string {
	return filepath.Join(config.IndexRoot(dir), config.ConfigFileName)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
