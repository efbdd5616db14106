package output

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table lays out rows in aligned columns under a bold header.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

func NewTable(headers ...string) *Table {
	t := &Table{headers: headers, widths: make([]int, len(headers))}
	for i, h := range headers {
		t.widths[i] = lipgloss.Width(h)
	}
	return t
}

// AddRow pads or truncates values to the number of headers.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.headers))
	copy(row, values)
	for i, cell := range row {
		if w := lipgloss.Width(cell); w > t.widths[i] {
			t.widths[i] = w
		}
	}
	t.rows = append(t.rows, row)
}

func (t *Table) Render() string {
	var sb strings.Builder
	writeRow := func(cells []string, style func(string) string) {
		for i, cell := range cells {
			if i > 0 {
				sb.WriteString("  ")
			}
			padded := cell + strings.Repeat(" ", t.widths[i]-lipgloss.Width(cell))
			if i == len(cells)-1 {
				padded = strings.TrimRight(padded, " ")
			}
			sb.WriteString(style(padded))
		}
		sb.WriteString("\n")
	}

	writeRow(t.headers, func(s string) string { return StyleHeader.Render(s) })
	sep := make([]string, len(t.widths))
	for i, w := range t.widths {
		sep[i] = strings.Repeat("─", w)
	}
	writeRow(sep, func(s string) string { return StyleMuted.Render(s) })
	for _, row := range t.rows {
		writeRow(row, func(s string) string { return s })
	}
	return sb.String()
}
