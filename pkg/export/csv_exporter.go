package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVExporter renders datasets as comma separated text with a label header row.
type CSVExporter struct {
	bom bool
}

// CSVOption customises a CSVExporter.
type CSVOption func(*CSVExporter)

// WithByteOrderMark prefixes output with a UTF-8 BOM so spreadsheet tools detect the encoding.
func WithByteOrderMark() CSVOption {
	return func(e *CSVExporter) { e.bom = true }
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter(opts ...CSVOption) *CSVExporter {
	e := &CSVExporter{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render writes the header and every row. Cells that a spreadsheet would evaluate as a
// formula are prefixed with a single quote.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if e.bom {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	records := make([][]string, 0, len(data.Rows)+1)
	records = append(records, data.labels())
	for _, row := range data.Rows {
		record := data.record(row)
		for i, cell := range record {
			record[i] = neutralize(cell)
		}
		records = append(records, record)
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func neutralize(cell string) string {
	if cell == "" || !strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
		return cell
	}
	if _, err := strconv.ParseFloat(cell, 64); err == nil {
		return cell
	}
	return "'" + cell
}
