package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Row is one record of a dataset. Depth nests the row under the previous
// shallower row; Emphasis marks aggregate rows.
type Row struct {
	Values   map[string]string
	Depth    int
	Emphasis bool
}

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []Row
	// Widths are relative column widths; equal widths are used when the
	// length does not match Headers.
	Widths []float64
}

// CSVExporter renders Dataset records into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the dataset. Nesting is flattened; a
// leading "level" column carries the row depth.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(append([]string{"level"}, data.Headers...)); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers)+1)
		record[0] = fmt.Sprint(row.Depth)
		for i, header := range data.Headers {
			record[i+1] = row.Values[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
