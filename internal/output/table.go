package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const columnGap = "  "

// column is one table column: its header, alignment and the widest cell seen.
type column struct {
	header string
	right  bool
	width  int
}

// Table renders rows under a styled header and a rule, sizing every column
// to its widest cell. Cells may carry ANSI styling.
type Table struct {
	cols   []column
	rows   [][]string
	indent string
}

// NewTable returns a left-aligned table with the given column headers.
func NewTable(headers ...string) *Table {
	cols := make([]column, len(headers))
	for i, h := range headers {
		cols[i] = column{header: h, width: visualLen(h)}
	}
	return &Table{cols: cols}
}

// AlignRight right-aligns the columns at the given indexes. Out of range
// indexes are ignored.
func (t *Table) AlignRight(indexes ...int) *Table {
	for _, i := range indexes {
		if i >= 0 && i < len(t.cols) {
			t.cols[i].right = true
		}
	}
	return t
}

// Indent prefixes every rendered line with n spaces.
func (t *Table) Indent(n int) *Table {
	t.indent = strings.Repeat(" ", max(n, 0))
	return t
}

// AddRow appends a row. Missing cells render empty; extra cells are dropped.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.cols))
	copy(row, values)
	for i, cell := range row {
		t.cols[i].width = max(t.cols[i].width, visualLen(cell))
	}
	t.rows = append(t.rows, row)
}

// Len is the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Render returns the table, one newline-terminated line per row.
func (t *Table) Render() string {
	if len(t.cols) == 0 {
		return ""
	}

	var sb strings.Builder
	t.renderLine(&sb, func(i int, c column) string {
		return StyleHeader.Render(t.align(c.header, i))
	})
	t.renderLine(&sb, func(_ int, c column) string {
		return StyleMuted.Render(strings.Repeat("─", c.width))
	})
	for _, row := range t.rows {
		t.renderLine(&sb, func(i int, _ column) string {
			return t.align(row[i], i)
		})
	}
	return sb.String()
}

func (t *Table) renderLine(sb *strings.Builder, cell func(int, column) string) {
	sb.WriteString(t.indent)
	for i, c := range t.cols {
		if i > 0 {
			sb.WriteString(columnGap)
		}
		sb.WriteString(cell(i, c))
	}
	sb.WriteString("\n")
}

func (t *Table) align(s string, i int) string {
	if t.cols[i].right {
		return padLeft(s, t.cols[i].width)
	}
	return pad(s, t.cols[i].width)
}

// String implements fmt.Stringer.
func (t *Table) String() string {
	return t.Render()
}

// Fprint writes the rendered table to w.
func (t *Table) Fprint(w io.Writer) {
	fmt.Fprint(w, t.Render())
}

// visualLen is the printed width of s, ignoring ANSI escape sequences.
func visualLen(s string) int {
	return lipgloss.Width(s)
}

// pad right-pads s with spaces to width. Longer strings are kept whole.
func pad(s string, width int) string {
	return s + strings.Repeat(" ", max(width-visualLen(s), 0))
}

// padLeft left-pads s with spaces to width. Longer strings are kept whole.
func padLeft(s string, width int) string {
	return strings.Repeat(" ", max(width-visualLen(s), 0)) + s
}
