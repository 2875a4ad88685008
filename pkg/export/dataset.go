package export

import "fmt"

// Column describes one output column.
type Column struct {
	Key   string
	Label string
	// Weight sizes the column relative to the others in PDF output; zero means 1.
	Weight float64
}

// Dataset is a tabular export payload keyed by column.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

// Append adds a row to the dataset.
func (d *Dataset) Append(row map[string]string) {
	d.Rows = append(d.Rows, row)
}

func (d Dataset) validate() error {
	if len(d.Columns) == 0 {
		return fmt.Errorf("dataset requires at least one column")
	}
	return nil
}

func (d Dataset) labels() []string {
	labels := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		labels[i] = col.Label
		if labels[i] == "" {
			labels[i] = col.Key
		}
	}
	return labels
}

func (d Dataset) record(row map[string]string) []string {
	record := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		record[i] = row[col.Key]
	}
	return record
}
