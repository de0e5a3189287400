package cli

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// table renders rows as fixed-width columns. Column widths are computed
// with rune-display-width rather than byte or rune count, so titles and
// values carrying wide (e.g. CJK) characters still line up — the same
// concern a line-editing terminal front end has to solve for its prompt.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

func (t *table) addRow(cols ...string) {
	t.rows = append(t.rows, cols)
}

func (t *table) render() string {
	widths := make([]int, len(t.headers))

	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(widths) {
				continue
			}

			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder

	writeRow := func(cols []string) {
		for i, w := range widths {
			cell := ""
			if i < len(cols) {
				cell = cols[i]
			}

			b.WriteString(runewidth.FillRight(cell, w))

			if i < len(widths)-1 {
				b.WriteString("  ")
			}
		}

		b.WriteString("\n")
	}

	writeRow(t.headers)

	for _, row := range t.rows {
		writeRow(row)
	}

	return b.String()
}
