package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset(rows int) Dataset {
	data := Dataset{
		Title: "Timetable",
		Columns: []Column{
			{Key: "day", Title: "Day"},
			{Key: "time", Title: "Time"},
			{Key: "subject", Title: "Subject", Width: 3},
		},
	}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, map[string]string{"day": "Monday", "time": "9-10", "subject": fmt.Sprintf("Data Structures %d", i)})
	}
	return data
}

func TestCSVExporterKeepsColumnOrder(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(2))
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Day", "Time", "Subject"}, records[0])
	assert.Equal(t, []string{"Monday", "9-10", "Data Structures 1"}, records[2])
}

func TestExportersRejectEmptyColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterPaginates(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(120))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidthsFollowWeights(t *testing.T) {
	widths := columnWidths(sampleDataset(0).Columns, 100)
	assert.InDelta(t, 20, widths[0], 0.001)
	assert.InDelta(t, 60, widths[2], 0.001)
}
