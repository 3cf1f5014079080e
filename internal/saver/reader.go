package saver

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"VolSentinel/internal/model"

	"github.com/guregu/null/v6"
)

// PriceColumns are the columns ParsePriceCSV keeps, in output order.
var PriceColumns = []string{"Open", "High", "Low", "Close", "Volume"}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/06",
	"01/02/2006",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"Jan 2, 2006",
}

// ParseDate accepts the date formats commonly found in exported price
// histories and returns the UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return model.DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ReadPriceCSV opens path and parses it with ParsePriceCSV.
func ReadPriceCSV(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := ParsePriceCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return t, nil
}

// ParsePriceCSV reads a price history with a header row. Date is required;
// of the remaining columns only Open, High, Low, Close and Volume are kept.
// Checking for the OHLC columns is left to the calculator.
func ParsePriceCSV(r io.Reader) (*model.Table, error) {
	header, records, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	dateIdx := -1
	keep := map[string]int{}
	for i, h := range header {
		if h == "Date" {
			dateIdx = i
			continue
		}
		for _, col := range PriceColumns {
			if h == col {
				keep[col] = i
			}
		}
	}
	if dateIdx < 0 {
		return nil, &model.ValidationError{Field: "Date", Reason: "missing required column"}
	}

	var columns []string
	var sources []int
	for _, col := range PriceColumns {
		if i, ok := keep[col]; ok {
			columns = append(columns, col)
			sources = append(sources, i)
		}
	}
	return buildTable("prices", columns, sources, dateIdx, records)
}

// ReadTableCSV reads any CSV written by CSVSaver: a Date column first and
// numeric columns after it. Empty cells are undefined.
func ReadTableCSV(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, records, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(header) == 0 || header[0] != "Date" {
		return nil, &model.ValidationError{Field: "Date", Reason: path + ": first column must be Date"}
	}
	sources := make([]int, len(header)-1)
	for i := range sources {
		sources[i] = i + 1
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t, err := buildTable(name, header[1:], sources, 0, records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// readCSV returns the trimmed header and the data records with their
// 1-based line numbers stored alongside.
func readCSV(r io.Reader) ([]string, []record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, &model.ValidationError{Field: "header", Reason: "empty file"}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var records []record
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, record{line: line, fields: fields})
	}
	return header, records, nil
}

type record struct {
	line   int
	fields []string
}

func buildTable(name string, columns []string, sources []int, dateIdx int, records []record) (*model.Table, error) {
	t := model.NewTable(name, columns...)
	for _, rec := range records {
		if isBlank(rec.fields) {
			continue
		}
		if dateIdx >= len(rec.fields) {
			return nil, &model.ValidationError{Field: "Date", Reason: fmt.Sprintf("line %d: missing value", rec.line)}
		}
		date, err := ParseDate(rec.fields[dateIdx])
		if err != nil {
			return nil, &model.ValidationError{Field: "Date", Reason: fmt.Sprintf("line %d: %v", rec.line, err)}
		}
		values := make([]null.Float, len(columns))
		for j, src := range sources {
			if src >= len(rec.fields) {
				continue
			}
			v, err := parseNumber(rec.fields[src])
			if err != nil {
				return nil, &model.ValidationError{Field: columns[j], Reason: fmt.Sprintf("line %d: %v", rec.line, err)}
			}
			values[j] = v
		}
		t.Append(date, values...)
	}
	return t, nil
}

// parseNumber reads a decimal with optional thousands separators. An empty
// cell is undefined.
func parseNumber(s string) (null.Float, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return null.Float{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}, fmt.Errorf("malformed number %q", s)
	}
	return model.Value(f), nil
}

func isBlank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// PriceTable converts a series to a table named after its symbol. Returns
// and RealizedVol are appended when present.
func PriceTable(s *model.PriceSeries) *model.Table {
	columns := append([]string(nil), PriceColumns...)
	if len(s.Returns) == s.Len() && s.Len() > 0 {
		columns = append(columns, "Returns")
	}
	if len(s.RealizedVol) == s.Len() && s.Len() > 0 {
		columns = append(columns, "RealizedVol")
	}
	t := model.NewTable(s.Symbol, columns...)
	for i, b := range s.Bars {
		values := []null.Float{
			model.Value(b.Open), model.Value(b.High), model.Value(b.Low),
			model.Value(b.Close), model.Value(b.Volume),
		}
		if t.HasColumn("Returns") {
			values = append(values, s.Returns[i])
		}
		if t.HasColumn("RealizedVol") {
			values = append(values, s.RealizedVol[i])
		}
		t.Append(model.DateOf(b.Time), values...)
	}
	return t
}
