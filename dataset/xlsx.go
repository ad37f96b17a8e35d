package dataset

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/xraph/itemcast/series"
)

// LoadXLSX reads a workbook dataset from path.
func LoadXLSX(path string, opts ...Option) (series.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	o := newOptions(opts)
	ds, err := readWorkbook(f, o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logLoaded(o.logger, path, ds)
	return ds, nil
}

// ReadXLSX reads a workbook dataset from r.
func ReadXLSX(r io.Reader, opts ...Option) (series.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("dataset: open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f, newOptions(opts))
}

func readWorkbook(f *excelize.File, o options) (series.Dataset, error) {
	sheet := o.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("dataset: read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	l, err := newLayout(rows[0], o.columns)
	if err != nil {
		return nil, fmt.Errorf("dataset: sheet %q: %w", sheet, err)
	}

	ds := make(series.Dataset, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec, err := l.record(row, i+2)
		if err != nil {
			return nil, err
		}
		ds = append(ds, rec)
	}
	return ds, nil
}

// SheetPredictions is the sheet WriteXLSX writes to.
const SheetPredictions = "predictions"

// WriteXLSX writes t to a single-sheet workbook with the same columns as
// WriteCSV.
func WriteXLSX(w io.Writer, t series.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetPredictions); err != nil {
		return fmt.Errorf("dataset: name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(SheetPredictions)
	if err != nil {
		return fmt.Errorf("dataset: stream sheet: %w", err)
	}
	if err := sw.SetRow("A1", []any{HeaderItem, HeaderMonth, HeaderPred}); err != nil {
		return fmt.Errorf("dataset: write header: %w", err)
	}
	for i, p := range t {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("dataset: write row: %w", err)
		}
		if err := sw.SetRow(cell, []any{p.Item, FormatMonth(p.Month), p.Value}); err != nil {
			return fmt.Errorf("dataset: write row: %w", err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("dataset: flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("dataset: write workbook: %w", err)
	}
	return nil
}
