package cli

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetsearch/internal/core"
	"github.com/JonMunkholm/sheetsearch/internal/storage"
)

func newInspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [flags] file",
		Short: "Show the shape and columns of a file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := loadTable(cmd, args[0])
			if err != nil {
				return err
			}
			info := core.NewSnapshot(t, filepath.Base(args[0]), core.SourceDefault).Info()

			format, _ := cmd.Flags().GetString("format")
			out := cmd.OutOrStdout()
			if strings.EqualFold(format, formatJSON) {
				return writeJSON(out, info)
			}
			fmt.Fprintf(out, "File:    %s\n", info.Filename)
			fmt.Fprintf(out, "Rows:    %d\n", info.Rows)
			fmt.Fprintf(out, "Columns: %d\n", info.Columns)
			for i, c := range info.ColumnNames {
				fmt.Fprintf(out, "  %3d  %s\n", i+1, c)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "text", "output format: text or json")
	return cmd
}

// searchPage is the JSON shape of one page of search output.
type searchPage struct {
	Data       []core.Record `json:"data"`
	TotalRows  int           `json:"total_rows"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalPages int           `json:"total_pages"`
	Columns    []string      `json:"columns"`
	Query      string        `json:"query"`
	Column     string        `json:"column"`
}

func newSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [flags] file query",
		Short: "Print the rows of a file that contain a query.",
		Long: `Print one page of the rows that contain query, ignoring case.
The query is literal text. With --column only that column is searched.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			out := cmd.OutOrStdout()
			format, cols, err := resolveFormat(format, out)
			if err != nil {
				return err
			}

			res, err := runSearch(cmd, args[0], args[1])
			if err != nil {
				return err
			}

			page, _ := cmd.Flags().GetInt("page")
			perPage, _ := cmd.Flags().GetInt("per-page")
			p := core.Paginate(res.Len(), page, perPage)
			rows := core.PageRows(res.Rows, p)

			switch format {
			case formatJSON:
				pageRes := &core.SearchResult{Columns: res.Columns, Rows: rows}
				return writeJSON(out, searchPage{
					Data:       pageRes.Records(),
					TotalRows:  p.TotalRows,
					Page:       p.Page,
					PerPage:    p.PerPage,
					TotalPages: p.TotalPages,
					Columns:    res.Columns,
					Query:      res.Query,
					Column:     res.Column,
				})
			case formatCSV:
				return writeCSV(out, res.Columns, rows)
			default:
				if err := writeTable(out, res.Columns, rows, cols); err != nil {
					return err
				}
				fmt.Fprintf(out, "\npage %d of %d, %d matching rows\n", p.Page, p.TotalPages, p.TotalRows)
				return nil
			}
		},
	}
	cmd.Flags().String("column", core.ColumnAll, "column to search, or all")
	cmd.Flags().Int("page", 1, "page number, starting at 1")
	cmd.Flags().Int("per-page", core.DefaultPerPage, fmt.Sprintf("rows per page, at most %d", core.MaxPerPage))
	cmd.Flags().String("format", formatAuto, "output format: auto, table, csv or json")
	return cmd
}

func newExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [flags] file query",
		Short: "Write every row that contains a query to a new file.",
		Long: `Write every matching row to search_results_<name> in the output
directory. A .csv name gives CSV; anything else gives an xlsx workbook.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := runSearch(cmd, args[0], args[1])
			if err != nil {
				return err
			}
			rows := core.ExportRowsFromResult(res)
			if rows.Len() == 0 {
				return core.InvalidInput("export", core.ErrNoResults)
			}

			source, _ := cmd.Flags().GetString("name")
			if source == "" {
				source = filepath.Base(args[0])
			}
			name := core.ExportFilename(source)
			data, err := core.EncodeExport(rows, core.ExportFormat(name))
			if err != nil {
				return err
			}

			dir, _ := cmd.Flags().GetString("out")
			store, err := storage.NewLocal(dir)
			if err != nil {
				return err
			}
			if err := store.Put(cmd.Context(), name, bytes.NewReader(data), int64(len(data))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d rows)\n", filepath.Join(store.Root(), name), rows.Len())
			return nil
		},
	}
	cmd.Flags().String("column", core.ColumnAll, "column to search, or all")
	cmd.Flags().String("out", ".", "directory to write the export to")
	cmd.Flags().String("name", "", "file name the export is named after (default: the input file name)")
	return cmd
}

// runSearch loads path and searches it with the --column flag.
func runSearch(cmd *cobra.Command, path, query string) (*core.SearchResult, error) {
	t, err := loadTable(cmd, path)
	if err != nil {
		return nil, err
	}
	column, _ := cmd.Flags().GetString("column")
	return core.NewSearcher(0, 0).Search(cmd.Context(), t, query, column)
}
