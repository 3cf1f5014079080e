package model

import (
	"time"

	"github.com/guregu/null/v6"
)

// Row is one dated row of a Table; Values is aligned with Table.Columns.
type Row struct {
	Date   time.Time
	Values []null.Float
}

// Table is a date-indexed table of numeric columns. Column order is
// significant and preserved by every writer.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// NewTable creates an empty table with the given columns.
func NewTable(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Append adds a row. Missing trailing values are undefined.
func (t *Table) Append(date time.Time, values ...null.Float) {
	row := Row{Date: date, Values: make([]null.Float, len(t.Columns))}
	copy(row.Values, values)
	t.Rows = append(t.Rows, row)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Column returns a copy of the named column.
func (t *Table) Column(name string) (Series, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	s := make(Series, len(t.Rows))
	for i, r := range t.Rows {
		s[i] = r.Values[idx]
	}
	return s, true
}

// Dates returns the row dates, in order.
func (t *Table) Dates() []time.Time {
	dates := make([]time.Time, len(t.Rows))
	for i, r := range t.Rows {
		dates[i] = r.Date
	}
	return dates
}

// AddColumn appends a column. s must be aligned with the rows.
func (t *Table) AddColumn(name string, s Series) {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		var v null.Float
		if i < len(s) {
			v = s[i]
		}
		t.Rows[i].Values = append(t.Rows[i].Values, v)
	}
}
