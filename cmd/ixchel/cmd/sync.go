package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/ixchel/internal/output"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the index against the source directory",
		Long: `Scans the source directory for Markdown/YAML-frontmatter entities,
diffs them against the stored manifest, embeds and stores what changed,
and materializes supersedes/supersededBy front-matter fields into graph
edges.`,
		Example: `  ixchel sync
  ixchel sync --directory ./docs`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, directory)
		},
	}
	return cmd
}

func runSync(cmd *cobra.Command, dir string) error {
	out := output.New(cmd.OutOrStdout())
	ctx := cmd.Context()

	coord, backend, err := openCoordinator(ctx, dir)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	stats, err := coord.Sync(ctx)
	if err != nil {
		return err
	}

	out.Success(fmt.Sprintf("Sync complete in %s", stats.Duration))
	out.Status("", fmt.Sprintf("Scanned: %d, added: %d, modified: %d, deleted: %d, unchanged: %d",
		stats.Scanned, stats.Added, stats.Modified, stats.Deleted, stats.Unchanged))
	return nil
}
