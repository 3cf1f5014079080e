package saver

import (
	"fmt"
	"strings"

	"VolSentinel/internal/model"

	"github.com/parquet-go/parquet-go"
)

// ColumnsKey is the file metadata key holding the table's column order;
// parquet groups store their fields sorted by name.
const ColumnsKey = "volsentinel.columns"

// ParquetSaver writes a required Date string column plus one optional
// DOUBLE column per table column. Undefined values are nulls.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(t *model.Table, path string) error {
	group := parquet.Group{"Date": parquet.String()}
	for _, col := range t.Columns {
		if col == "Date" {
			return fmt.Errorf("parquet %s: column name Date is reserved", path)
		}
		group[col] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
	}
	name := t.Name
	if name == "" {
		name = "table"
	}
	schema := parquet.NewSchema(name, group)

	index := make(map[string]int, len(t.Columns)+1)
	for i, p := range schema.Columns() {
		index[p[0]] = i
	}
	dateIdx := index["Date"]

	rows := make([]parquet.Row, len(t.Rows))
	for i, r := range t.Rows {
		row := make(parquet.Row, len(index))
		row[dateIdx] = parquet.ValueOf(r.Date.Format(dateLayout)).Level(0, 0, dateIdx)
		for j, col := range t.Columns {
			ci := index[col]
			if j < len(r.Values) && r.Values[j].Valid {
				row[ci] = parquet.ValueOf(r.Values[j].Float64).Level(0, 1, ci)
			} else {
				row[ci] = parquet.NullValue().Level(0, 0, ci)
			}
		}
		rows[i] = row
	}

	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := parquet.NewWriter(f, schema, parquet.KeyValueMetadata(ColumnsKey, strings.Join(t.Columns, ",")))
	if _, err := w.WriteRows(rows); err != nil {
		return fmt.Errorf("parquet %s: write rows: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("parquet %s: close writer: %w", path, err)
	}
	return f.Close()
}
