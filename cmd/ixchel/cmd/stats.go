package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/ixchel/internal/output"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		Long:  `Displays the node count, edge count, vector dimension, and backend kind of the current index.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd, directory, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStats(cmd *cobra.Command, dir string, jsonOutput bool) error {
	ctx := cmd.Context()

	coord, backend, err := openCoordinator(ctx, dir)
	if err != nil {
		emitJSONError(cmd, jsonOutput, err)
		return err
	}
	defer func() { _ = backend.Close() }()

	stats, err := coord.BackendStats(ctx)
	if err != nil {
		emitJSONError(cmd, jsonOutput, err)
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	out := output.New(cmd.OutOrStdout())
	out.Status("", fmt.Sprintf("Backend:   %s", stats.Backend))
	out.Status("", fmt.Sprintf("Nodes:     %d", stats.NodeCount))
	out.Status("", fmt.Sprintf("Edges:     %d", stats.EdgeCount))
	out.Status("", fmt.Sprintf("Dimension: %d", stats.Dimension))
	return nil
}
