package cli

import (
	"bufio"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
)

const (
	tablePadding = 2
	// maxCellWidth caps every column but the last, which may run long.
	maxCellWidth = 40
)

// writeTable prints rows as aligned columns. Cells wider than maxCellWidth
// are cut with an ellipsis unless they are styled.
func writeTable(out io.Writer, headers []string, rows [][]string) error {
	colCount := len(headers)
	for _, row := range rows {
		colCount = max(colCount, len(row))
	}
	if colCount == 0 {
		return nil
	}

	cell := func(row []string, idx int) string {
		if idx >= len(row) {
			return ""
		}
		value := row[idx]
		if idx < colCount-1 && !hasANSI(value) && runewidth.StringWidth(value) > maxCellWidth {
			value = runewidth.Truncate(value, maxCellWidth, "…")
		}
		return value
	}

	widths := make([]int, colCount)
	measure := func(row []string) {
		for idx := 0; idx < colCount; idx++ {
			widths[idx] = max(widths[idx], ansi.PrintableRuneWidth(cell(row, idx)))
		}
	}
	measure(headers)
	for _, row := range rows {
		measure(row)
	}

	w := bufio.NewWriter(out)
	writeRow := func(row []string) {
		var line strings.Builder
		for idx := 0; idx < colCount; idx++ {
			value := cell(row, idx)
			line.WriteString(value)
			if idx < colCount-1 {
				pad := max(widths[idx]-ansi.PrintableRuneWidth(value), 0)
				line.WriteString(strings.Repeat(" ", pad+tablePadding))
			}
		}
		w.WriteString(strings.TrimRight(line.String(), " "))
		w.WriteByte('\n')
	}

	if len(headers) > 0 {
		writeRow(headers)
	}
	for _, row := range rows {
		writeRow(row)
	}
	return w.Flush()
}

func hasANSI(value string) bool {
	return strings.Contains(value, "\x1b[")
}

func formatYesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
