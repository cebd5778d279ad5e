package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/ixchel/internal/config"
	"github.com/kevinmichaelchen/ixchel/internal/ixerr"
	"github.com/kevinmichaelchen/ixchel/internal/output"
)

func newClearCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the index, keeping the configuration",
		Long: `Removes the storage backend's on-disk data (the configured
storage.path under .ixchel/), leaving ixchel.toml in place so a subsequent
'ixchel sync' rebuilds from scratch.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runClear(cmd, directory, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the existence check")

	return cmd
}

func runClear(cmd *cobra.Command, dir string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	indexRoot := config.IndexRoot(dir)
	if !dirExists(indexRoot) && !force {
		return ixerr.New(ixerr.KindNotInitialized,
			fmt.Sprintf("no index found at %s", indexRoot), nil)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return ixerr.Wrap(ixerr.KindIO, err)
	}

	if strings.EqualFold(cfg.Storage.Backend, "surrealdb") {
		return ixerr.New(ixerr.KindDatabase,
			"clear is not supported against the surrealdb backend; connect directly and remove the entities/edges tables", nil)
	}

	storageRoot := cfg.StorageRoot(dir)
	if err := os.RemoveAll(storageRoot); err != nil {
		return ixerr.Wrap(ixerr.KindIO, err)
	}

	out.Success(fmt.Sprintf("Cleared index data at %s", storageRoot))
	return nil
}
