// Package export renders tabular report listings as CSV or PDF.
package export

import "fmt"

// Column describes one exported field. Width is a relative PDF column weight.
type Column struct {
	Title string
	Width float64
}

// Table is an ordered tabular dataset.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]string
}

func (t Table) validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("export requires at least one column")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
	}
	return nil
}

func (t Table) headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Title
	}
	return out
}
