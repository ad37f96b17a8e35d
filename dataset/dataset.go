// Package dataset reads sales history into a [series.Dataset] and writes
// prediction tables back out.
//
// Input is a table with one row per (item, month) observation. CSV and
// XLSX workbooks are supported; [Load] picks the reader from the file
// extension. Column names default to Item, YYYYMM and Sales and can be
// changed with [WithColumns]. Output tables have the columns Item, YYYYMM
// and y_pred.
package dataset

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/series"
)

// Columns names the input columns holding the item key, the month and the
// observed value.
type Columns struct {
	Item  string `yaml:"item" split_words:"true"`
	Month string `yaml:"month" split_words:"true"`
	Value string `yaml:"value" split_words:"true"`
}

// DefaultColumns returns the column names of the sample sales extract.
func DefaultColumns() Columns {
	return Columns{Item: "Item", Month: "YYYYMM", Value: "Sales"}
}

// Output column headers.
const (
	HeaderItem  = "Item"
	HeaderMonth = "YYYYMM"
	HeaderPred  = "y_pred"
)

// Option configures a reader.
type Option func(*options)

type options struct {
	columns Columns
	sheet   string
	logger  *slog.Logger
}

func newOptions(opts []Option) options {
	o := options{columns: DefaultColumns(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithColumns overrides the input column names. Empty fields keep their
// default.
func WithColumns(c Columns) Option {
	return func(o *options) {
		if c.Item != "" {
			o.columns.Item = c.Item
		}
		if c.Month != "" {
			o.columns.Month = c.Month
		}
		if c.Value != "" {
			o.columns.Value = c.Value
		}
	}
}

// WithSheet selects the workbook sheet to read. By default the first sheet
// is used.
func WithSheet(name string) Option {
	return func(o *options) { o.sheet = name }
}

// WithLogger sets the logger load summaries are written to.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Load reads the dataset at path. Files ending in .csv are read as CSV;
// .xlsx and .xlsm as workbooks.
func Load(path string, opts ...Option) (series.Dataset, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return LoadCSV(path, opts...)
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, opts...)
	default:
		return nil, fmt.Errorf("%w: unsupported dataset format %q", itemcast.ErrInvalidSetting, ext)
	}
}

// layout maps the configured columns to positions in the header row.
type layout struct {
	item, month, value int
	width              int
}

func newLayout(header []string, c Columns) (layout, error) {
	l := layout{item: -1, month: -1, value: -1}
	for i, name := range header {
		// Spreadsheet exports often carry a byte order mark on the first cell.
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		switch name {
		case c.Item:
			l.item = i
		case c.Month:
			l.month = i
		case c.Value:
			l.value = i
		}
	}
	for name, idx := range map[string]int{c.Item: l.item, c.Month: l.month, c.Value: l.value} {
		if idx < 0 {
			return l, fmt.Errorf("%w: missing column %q", itemcast.ErrInvalidRecord, name)
		}
	}
	l.width = max(l.item, l.month, l.value) + 1
	return l, nil
}

// record converts one data row. line is the 1-based row number used in
// errors.
func (l layout) record(row []string, line int) (series.Record, error) {
	if len(row) < l.width {
		return series.Record{}, fmt.Errorf("dataset: line %d: %w: %d fields, want at least %d",
			line, itemcast.ErrInvalidRecord, len(row), l.width)
	}
	month, err := series.ParseMonth(row[l.month])
	if err != nil {
		return series.Record{}, fmt.Errorf("dataset: line %d: %w", line, err)
	}
	value, err := parseValue(row[l.value])
	if err != nil {
		return series.Record{}, fmt.Errorf("dataset: line %d: %w", line, err)
	}
	return series.Record{Item: row[l.item], Month: month, Value: value}, nil
}

func parseValue(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: value %q", itemcast.ErrInvalidRecord, s)
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: value %q must be a non-negative number", itemcast.ErrInvalidRecord, s)
	}
	return v, nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// FormatMonth renders m as YYYYMM, the form the input column uses.
func FormatMonth(m series.Month) string {
	return fmt.Sprintf("%04d%02d", m.Year(), int(m.Month()))
}

func logLoaded(logger *slog.Logger, source string, ds series.Dataset) {
	logger.Info("dataset loaded",
		slog.String("source", source),
		slog.Int("rows", len(ds)),
		slog.Int("items", len(ds.Items())),
	)
}
