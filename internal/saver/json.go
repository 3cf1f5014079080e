package saver

import (
	"bytes"
	"encoding/json"
	"fmt"

	"VolSentinel/internal/model"
)

// JSONSaver writes an indented array of objects, one per row, keyed by
// column name in table order. Undefined values are null.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(t *model.Table, path string) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rows := make([]json.RawMessage, len(t.Rows))
	for i, r := range t.Rows {
		raw, err := encodeRow(t.Columns, r)
		if err != nil {
			return fmt.Errorf("encode row %d: %w", i+1, err)
		}
		rows[i] = raw
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// encodeRow builds the object by hand because encoding/json sorts map keys.
func encodeRow(columns []string, r model.Row) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"Date":"`)
	buf.WriteString(r.Date.Format(dateLayout))
	buf.WriteByte('"')
	for j, col := range columns {
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		if j < len(r.Values) && r.Values[j].Valid {
			buf.WriteString(formatValue(r.Values[j].Float64))
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
