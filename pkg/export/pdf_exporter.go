package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const landscapeColumns = 6

// PDFExporter renders datasets into a tabular PDF. Wide tables switch to
// landscape and columns share the page width by their weights.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType of the rendered output.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Extension of the rendered output.
func (e *PDFExporter) Extension() string { return "pdf" }

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, fmt.Errorf("pdf requires at least one column")
	}

	orientation := "P"
	if len(data.Columns) > landscapeColumns {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(false, 15)
	pdf.AddPage()

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	widths := columnWidths(data.Columns, pageWidth-left-right)

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, data.Title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(230, 230, 230)
		for i, title := range data.titles() {
			pdf.CellFormat(widths[i], 8, title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	for i := range data.Rows {
		if pdf.GetY()+7 > pageHeight-15 {
			pdf.AddPage()
			header()
		}
		for c, value := range data.Row(i) {
			pdf.CellFormat(widths[c], 7, truncate(pdf, value, widths[c]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(columns []Column, total float64) []float64 {
	sum := 0.0
	for _, col := range columns {
		sum += weight(col)
	}
	widths := make([]float64, len(columns))
	for i, col := range columns {
		widths[i] = total * weight(col) / sum
	}
	return widths
}

func weight(col Column) float64 {
	if col.Width <= 0 {
		return 1
	}
	return col.Width
}

func truncate(pdf *gofpdf.Fpdf, value string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(value) <= limit {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
