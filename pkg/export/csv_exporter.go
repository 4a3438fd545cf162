package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// CSVExporter writes tables as RFC 4180 CSV.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// ContentType is the MIME type of the rendered output.
func (e *CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }

// Extension is the file suffix used for downloads.
func (e *CSVExporter) Extension() string { return "csv" }

// Render writes the table to w. Cells that a spreadsheet would evaluate as formulas are quoted.
func (e *CSVExporter) Render(w io.Writer, table Table) error {
	if err := table.validate(); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(table.headers()); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, cell := range row {
			record[i] = neutralizeFormula(cell)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func neutralizeFormula(cell string) string {
	if cell != "" && strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return "'" + cell
	}
	return cell
}
