package saver

import (
	"fmt"

	"VolSentinel/internal/model"

	"github.com/xuri/excelize/v2"
)

const maxSheetName = 31

// XLSXSaver writes the table to the first sheet of a workbook, named after
// the table. Undefined values are empty cells.
type XLSXSaver struct{}

func (XLSXSaver) Extension() string { return "xlsx" }

func (XLSXSaver) Save(t *model.Table, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if name := sheetName(t.Name); name != "" && name != sheet {
		if err := f.SetSheetName(sheet, name); err != nil {
			return fmt.Errorf("xlsx %s: rename sheet: %w", path, err)
		}
		sheet = name
	}

	header := make([]interface{}, 0, len(t.Columns)+1)
	header = append(header, "Date")
	for _, col := range t.Columns {
		header = append(header, col)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx %s: header: %w", path, err)
	}

	for i, r := range t.Rows {
		cells := make([]interface{}, len(t.Columns)+1)
		cells[0] = r.Date.Format(dateLayout)
		for j := range t.Columns {
			if j < len(r.Values) && r.Values[j].Valid {
				cells[j+1] = r.Values[j].Float64
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("xlsx %s: row %d: %w", path, i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx %s: %w", path, err)
	}
	return nil
}

func sheetName(name string) string {
	if len(name) > maxSheetName {
		return name[:maxSheetName]
	}
	return name
}
