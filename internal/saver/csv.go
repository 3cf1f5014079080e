package saver

import (
	"encoding/csv"
	"fmt"

	"VolSentinel/internal/model"
)

// CSVSaver writes a header row (Date + columns) and one record per row.
// Undefined values are written as empty cells.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(t *model.Table, path string) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"Date"}, t.Columns...)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(t.Columns)+1)
	for i, r := range t.Rows {
		record[0] = r.Date.Format(dateLayout)
		for j := range t.Columns {
			record[j+1] = ""
			if j < len(r.Values) && r.Values[j].Valid {
				record[j+1] = formatValue(r.Values[j].Float64)
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}
