// Package export renders tabular datasets as CSV or PDF.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Column is one dataset column. Width is a relative weight used by the PDF
// layout; zero means 1.
type Column struct {
	Key   string
	Title string
	Width float64
}

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

// Row returns the cells of row i in column order.
func (d Dataset) Row(i int) []string {
	record := make([]string, len(d.Columns))
	for c, col := range d.Columns {
		record[c] = d.Rows[i][col.Key]
	}
	return record
}

func (d Dataset) titles() []string {
	out := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		out[i] = col.Title
		if out[i] == "" {
			out[i] = col.Key
		}
	}
	return out
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// ContentType of the rendered output.
func (e *CSVExporter) ContentType() string { return "text/csv" }

// Extension of the rendered output.
func (e *CSVExporter) Extension() string { return "csv" }

// Render produces CSV encoded bytes for the dataset.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, fmt.Errorf("csv requires at least one column")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.titles()); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for i := range data.Rows {
		if err := writer.Write(data.Row(i)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
