package display

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const defaultTerminalWidth = 80

// Table renders left-aligned columns separated by two spaces. The last
// column is truncated to fit maxWidth.
type Table struct {
	headers  []string
	rows     [][]string
	maxWidth int
}

// NewTable creates a table with the given headers
func NewTable(maxWidth int, headers ...string) *Table {
	if maxWidth <= 0 {
		maxWidth = defaultTerminalWidth
	}
	return &Table{headers: headers, maxWidth: maxWidth}
}

// AddRow appends a row. Missing cells render empty.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the table to w
func (t *Table) Render(w io.Writer) error {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i := range widths {
			if i < len(row) {
				if n := utf8.RuneCountInString(row[i]); n > widths[i] {
					widths[i] = n
				}
			}
		}
	}

	// Shrink the last column to fit
	if last := len(widths) - 1; last >= 0 {
		used := 0
		for _, wd := range widths[:last] {
			used += wd + 2
		}
		if avail := t.maxWidth - used; avail >= 8 && widths[last] > avail {
			widths[last] = avail
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, wd := range widths {
			cell := ""
			if i < len(cells) {
				cell = truncate(cells[i], wd)
			}
			b.WriteString(cell)
			if i < len(widths)-1 {
				b.WriteString(strings.Repeat(" ", wd-utf8.RuneCountInString(cell)+2))
			}
		}
		b.WriteString("\n")
	}

	writeRow(t.headers)
	for _, row := range t.rows {
		writeRow(row)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// truncate shortens s to width runes, keeping the tail, which is the most
// specific part of a path.
func truncate(s string, width int) string {
	n := utf8.RuneCountInString(s)
	if n <= width {
		return s
	}
	if width <= 3 {
		return string([]rune(s)[n-width:])
	}
	return "..." + string([]rune(s)[n-width+3:])
}

// terminalWidth returns the width of out, or a default when out is not a
// terminal.
func terminalWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok {
		return defaultTerminalWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultTerminalWidth
	}
	return width
}
