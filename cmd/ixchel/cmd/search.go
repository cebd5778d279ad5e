package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/ixchel/internal/coordinator"
	"github.com/kevinmichaelchen/ixchel/internal/output"
	"github.com/kevinmichaelchen/ixchel/internal/store"
)

// errNoResults signals a query that completed successfully but matched
// nothing. It carries no ixerr.Kind, so ixerr.ExitCode falls through to
// its default case (exit 1), matching the "query with no results" exit
// code named for the CLI boundary.
var errNoResults = errors.New("no results")

type searchOptions struct {
	limit      int
	status     string
	tagsCSV    string
	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the index for similar entities",
		Long: `Embeds the query and returns the most similar entities by cosine
similarity, optionally filtered by status and/or tags.`,
		Args: cobra.MinimumNArgs(1),
		Example: `  ixchel search "why did we switch databases"
  ixchel search "retry policy" --status accepted --tags backend,reliability
  ixchel search "open questions" --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, directory, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVar(&opts.status, "status", "", "Filter by entity status")
	cmd.Flags().StringVar(&opts.tagsCSV, "tags", "", "Filter by tags (comma-separated, entity must have all)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output results as JSON")

	return cmd
}

// searchResultJSON is the schema external callers parse: {"query", "count",
// "results": [{"id", "title", "status", "score", "tags", "date", "deciders",
// "file_path"}...]}.
type searchResultJSON struct {
	Query   string           `json:"query"`
	Count   int              `json:"count"`
	Results []searchHitJSON  `json:"results"`
}

type searchHitJSON struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Status    string   `json:"status"`
	Score     float32  `json:"score"`
	Tags      []string `json:"tags"`
	Date      string   `json:"date"`
	Deciders  []string `json:"deciders"`
	FilePath  string   `json:"file_path"`
}

func runSearch(cmd *cobra.Command, dir, query string, opts searchOptions) error {
	ctx := cmd.Context()

	coord, backend, err := openCoordinator(ctx, dir)
	if err != nil {
		emitJSONError(cmd, opts.jsonOutput, err)
		return err
	}
	defer func() { _ = backend.Close() }()

	var tags []string
	if opts.tagsCSV != "" {
		tags = strings.Split(opts.tagsCSV, ",")
		for i := range tags {
			tags[i] = strings.TrimSpace(tags[i])
		}
	}

	results, err := coord.Search(ctx, query, opts.limit, coordinator.Filters{
		Status: opts.status,
		Tags:   tags,
	})
	if err != nil {
		emitJSONError(cmd, opts.jsonOutput, err)
		return err
	}

	var printErr error
	if opts.jsonOutput {
		printErr = printSearchJSON(cmd, query, results)
	} else {
		printErr = printSearchText(cmd, query, results)
	}
	if printErr != nil {
		return printErr
	}
	if len(results) == 0 {
		return errNoResults
	}
	return nil
}

func printSearchJSON(cmd *cobra.Command, query string, results []store.SearchResult) error {
	payload := searchResultJSON{
		Query:   query,
		Count:   len(results),
		Results: make([]searchHitJSON, 0, len(results)),
	}
	for _, r := range results {
		payload.Results = append(payload.Results, searchHitJSON{
			ID:       r.Entity.ID,
			Title:    r.Entity.Title,
			Status:   r.Entity.Status,
			Score:    r.Score,
			Tags:     r.Entity.Tags,
			Date:     r.Entity.Date.Format("2006-01-02"),
			Deciders: r.Entity.Deciders,
			FilePath: r.Entity.Path,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func printSearchText(cmd *cobra.Command, query string, results []store.SearchResult) error {
	out := output.New(cmd.OutOrStdout())

	if len(results) == 0 {
		out.Status("", fmt.Sprintf("No results for %q", query))
		return nil
	}

	out.Statusf("🔍", "Found %d results for %q:", len(results), query)
	out.Newline()

	for i, r := range results {
		out.Statusf("", "%d. [%s] %s (score: %.3f)", i+1, r.Entity.Status, r.Entity.Title, r.Score)
		if len(r.Entity.Tags) > 0 {
			out.Status("", "   tags: "+strings.Join(r.Entity.Tags, ", "))
		}
		out.Status("", "   "+r.Entity.Path)
		out.Newline()
	}
	return nil
}
