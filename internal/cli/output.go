package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"golang.org/x/text/width"
)

// Output formats accepted by --format.
const (
	formatAuto  = "auto"
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

// defaultWidth is used for table output when stdout is not a terminal.
const defaultWidth = 120

// terminalWidth reports whether w is a terminal and, if so, its width.
func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil || cols <= 0 {
		return defaultWidth, true
	}
	return cols, true
}

// resolveFormat turns "auto" into table on a terminal and csv otherwise.
func resolveFormat(format string, w io.Writer) (string, int, error) {
	cols, tty := terminalWidth(w)
	switch strings.ToLower(format) {
	case "", formatAuto:
		if tty {
			return formatTable, cols, nil
		}
		return formatCSV, 0, nil
	case formatTable:
		if !tty {
			cols = defaultWidth
		}
		return formatTable, cols, nil
	case formatCSV, formatJSON:
		return strings.ToLower(format), 0, nil
	default:
		return "", 0, fmt.Errorf("unknown format %q: use auto, table, csv or json", format)
	}
}

func writeCSV(w io.Writer, columns []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	return cw.WriteAll(rows)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeTable renders rows as aligned columns no wider than maxWidth.
// Cells that do not fit are cut and end in "…".
func writeTable(w io.Writer, columns []string, rows [][]string, maxWidth int) error {
	if len(columns) == 0 {
		return nil
	}
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = displayWidth(c)
	}
	for _, row := range rows {
		for i := range columns {
			if i < len(row) {
				widths[i] = max(widths[i], displayWidth(row[i]))
			}
		}
	}
	fitWidths(widths, maxWidth-2*(len(columns)-1))

	var b strings.Builder
	line := func(cells []string) {
		b.Reset()
		for i := range columns {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			if i > 0 {
				b.WriteString("  ")
			}
			cell = truncate(cell, widths[i])
			b.WriteString(cell)
			if i < len(columns)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-displayWidth(cell)))
			}
		}
		b.WriteByte('\n')
	}

	line(columns)
	rule := make([]string, len(columns))
	for i, n := range widths {
		rule[i] = strings.Repeat("-", n)
	}
	line(rule)
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	for _, row := range rows {
		line(row)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
	}
	return nil
}

// fitWidths shrinks the widest columns until the total fits budget. No
// column goes below 3 cells.
func fitWidths(widths []int, budget int) {
	const minCol = 3
	total := 0
	for _, n := range widths {
		total += n
	}
	for total > budget {
		widest := 0
		for i, n := range widths {
			if n > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= minCol {
			return
		}
		widths[widest]--
		total--
	}
}

// displayWidth counts terminal cells; East Asian wide runes take two.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		n += runeWidth(r)
	}
	return n
}

func runeWidth(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	default:
		return 1
	}
}

// truncate cuts s to at most n cells.
func truncate(s string, n int) string {
	s = strings.NewReplacer("\n", " ", "\r", " ", "\t", " ").Replace(s)
	if displayWidth(s) <= n {
		return s
	}
	if n <= 1 {
		return strings.Repeat("…", n)
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		rw := runeWidth(r)
		if used+rw > n-1 {
			break
		}
		b.WriteRune(r)
		used += rw
	}
	b.WriteString("…")
	return b.String()
}
