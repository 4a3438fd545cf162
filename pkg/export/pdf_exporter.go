package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 277.0 // A4 landscape minus margins
	pdfLineHeight = 5.0
)

// PDFExporter renders tables into a landscape A4 document.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType is the MIME type of the rendered output.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension is the file suffix used for downloads.
func (e *PDFExporter) Extension() string { return "pdf" }

// Render writes the table to w. Long cells wrap within their column.
func (e *PDFExporter) Render(w io.Writer, table Table) error {
	if err := table.validate(); err != nil {
		return err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	widths := columnWidths(table.Columns)

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, col := range table.Columns {
			pdf.CellFormat(widths[i], 7, tr(col.Title), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	pdf.SetHeaderFunc(func() {
		if table.Title != "" {
			pdf.SetFont("Arial", "B", 13)
			pdf.CellFormat(0, 9, tr(table.Title), "", 1, "L", false, 0, "")
		}
	})
	pdf.AddPage()
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range table.Rows {
		lines := 1
		for i, cell := range row {
			if n := len(pdf.SplitLines([]byte(tr(cell)), widths[i]-2)); n > lines {
				lines = n
			}
		}
		rowHeight := float64(lines) * pdfLineHeight
		if pdf.GetY()+rowHeight > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		x, y := pdf.GetX(), pdf.GetY()
		for i, cell := range row {
			pdf.Rect(x, y, widths[i], rowHeight, "D")
			pdf.MultiCell(widths[i], pdfLineHeight, tr(cell), "", "L", false)
			x += widths[i]
			pdf.SetXY(x, y)
		}
		pdf.SetXY(10, y+rowHeight)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func columnWidths(cols []Column) []float64 {
	total := 0.0
	for _, c := range cols {
		if c.Width > 0 {
			total += c.Width
		} else {
			total++
		}
	}
	out := make([]float64, len(cols))
	for i, c := range cols {
		weight := c.Width
		if weight <= 0 {
			weight = 1
		}
		out[i] = pdfPageWidth * weight / total
	}
	return out
}
