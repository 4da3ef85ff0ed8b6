// Package cli implements the sheetsearch command line tool. It reads a
// spreadsheet from disk and runs the same ingestion, search, paging and
// export code as the web service, without a server.
package cli

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetsearch/internal/core"
	"github.com/JonMunkholm/sheetsearch/internal/logging"
)

// Version is set at build time with -ldflags.
var Version string

// NewRootCommand builds the sheetsearch command tree.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sheetsearch",
		Short:         "Search CSV and Excel files from the command line.",
		Long:          "Load a CSV, xlsx or xls file, search its rows by substring, page through the matches and export them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level, _ := cmd.Flags().GetString("log-level")
			logging.SetupWriter(cmd.ErrOrStderr(), level, "text")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if getBool(cmd, "version") {
				fmt.Fprintln(cmd.OutOrStdout(), "sheetsearch", version())
				return nil
			}
			return cmd.Help()
		},
	}

	root.Flags().Bool("version", false, "report version of this executable")
	root.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().Int("max-cells", core.DefaultMaxCells, "refuse files with more cells than this")
	root.PersistentFlags().Bool("raw-values", false, "read stored xlsx values instead of formatted text")
	root.PersistentFlags().Bool("keep-missing", false, "keep cells like NA or null as text instead of reading them as empty")

	root.AddCommand(newInspectCommand(), newSearchCommand(), newExportCommand())
	return root
}

// Execute runs the command tree and reports a failure on stderr, followed
// by the coded hint when the error is a known one. It returns the process
// exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(stderr, core.FormatUserError(err))
		}
		return 1
	}
	return 0
}

func version() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(unknown version)"
}

// ingestor builds an Ingestor from the persistent flags. Local files have
// no size cap.
func ingestor(cmd *cobra.Command) *core.Ingestor {
	maxCells, _ := cmd.Flags().GetInt("max-cells")
	return core.NewIngestor(core.IngestOptions{
		MaxCells:           maxCells,
		RawCellValues:      getBool(cmd, "raw-values"),
		KeepMissingMarkers: getBool(cmd, "keep-missing"),
	})
}

// loadTable parses path into a table.
func loadTable(cmd *cobra.Command, path string) (*core.Table, error) {
	if _, err := core.FormatFromName(path); err != nil {
		return nil, core.InvalidInput("load", core.ErrFileType)
	}
	t, err := ingestor(cmd).ParseFile(path)
	if err != nil {
		return nil, core.IngestionFailure("load", err)
	}
	return t, nil
}

func getBool(cmd *cobra.Command, flag string) bool {
	v, _ := cmd.Flags().GetBool(flag)
	return v
}
