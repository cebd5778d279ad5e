// Package cmd provides the ixchel CLI commands.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/ixchel/internal/logging"
	"github.com/kevinmichaelchen/ixchel/pkg/version"
)

var (
	directory     string
	debugMode     bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the ixchel CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ixchel",
		Short: "Embedded graph+vector search over Markdown/YAML entities",
		Long: `ixchel indexes a directory of Markdown documents with YAML
front-matter (decisions, issues, ideas, sources, and the like) into an
embedded graph+vector store, and answers search queries against it.

Run 'ixchel init' once per project, then 'ixchel sync' whenever the
source directory changes, and 'ixchel search <query>' to query the index.`,
		Version: version.Version,
		// Errors are mapped to exit codes and printed as a single line by
		// main(), not cobra's default multi-line usage dump.
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetVersionTemplate("ixchel version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&directory, "directory", "d", ".", "Source directory to index/search")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.ixchel/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newClearCmd())

	return cmd
}

// startLogging enables file-based debug logging when --debug is set.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

// stopLogging closes the debug log file, if one was opened.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
