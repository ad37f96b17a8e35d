package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xraph/itemcast/series"
)

// LoadCSV reads a CSV dataset from path.
func LoadCSV(path string, opts ...Option) (series.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: open %s: %w", path, err)
	}
	defer f.Close()

	o := newOptions(opts)
	ds, err := readCSV(f, o)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logLoaded(o.logger, path, ds)
	return ds, nil
}

// ReadCSV reads a CSV dataset. The first record is the header row; extra
// columns are ignored.
func ReadCSV(r io.Reader, opts ...Option) (series.Dataset, error) {
	return readCSV(r, newOptions(opts))
}

func readCSV(r io.Reader, o options) (series.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read header: %w", err)
	}
	l, err := newLayout(header, o.columns)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}

	var ds series.Dataset
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return ds, nil
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if blank(row) {
			continue
		}
		rec, err := l.record(row, line)
		if err != nil {
			return nil, err
		}
		ds = append(ds, rec)
	}
}

// WriteCSV writes t as CSV with the columns Item, YYYYMM and y_pred, in
// table order.
func WriteCSV(w io.Writer, t series.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{HeaderItem, HeaderMonth, HeaderPred}); err != nil {
		return fmt.Errorf("dataset: write header: %w", err)
	}
	for _, p := range t {
		if err := cw.Write([]string{p.Item, FormatMonth(p.Month), fmt.Sprint(p.Value)}); err != nil {
			return fmt.Errorf("dataset: write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
