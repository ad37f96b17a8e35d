package dataset_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/dataset"
	"github.com/xraph/itemcast/series"
)

const sample = `Item,YYYYMM,Sales,Region
A,201901,6.4,north
A,201902,8.4,north

B,2019-01,"1,200",south
`

func TestReadCSV(t *testing.T) {
	ds, err := dataset.ReadCSV(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds) != 3 {
		t.Fatalf("expected 3 records, got %d", len(ds))
	}
	want := series.Record{Item: "B", Month: series.NewMonth(2019, 1), Value: 1200}
	if ds[2] != want {
		t.Fatalf("expected %+v, got %+v", want, ds[2])
	}
	if got := ds.Items(); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("unexpected items %v", got)
	}
}

func TestReadCSV_CustomColumns(t *testing.T) {
	in := "sku,period,units\nX,2020-03-15,4\n"
	ds, err := dataset.ReadCSV(strings.NewReader(in),
		dataset.WithColumns(dataset.Columns{Item: "sku", Month: "period", Value: "units"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds) != 1 || ds[0].Month != series.NewMonth(2020, 3) || ds[0].Value != 4 {
		t.Fatalf("unexpected dataset %+v", ds)
	}
}

func TestReadCSV_Errors(t *testing.T) {
	cases := map[string]string{
		"missing column": "Item,YYYYMM\nA,201901\n",
		"bad month":      "Item,YYYYMM,Sales\nA,2019,1\n",
		"bad value":      "Item,YYYYMM,Sales\nA,201901,lots\n",
		"negative value": "Item,YYYYMM,Sales\nA,201901,-1\n",
		"short row":      "Item,YYYYMM,Sales\nA,201901\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := dataset.ReadCSV(strings.NewReader(in)); !errors.Is(err, itemcast.ErrInvalidRecord) {
				t.Fatalf("expected ErrInvalidRecord, got %v", err)
			}
		})
	}
}

func TestReadCSV_Empty(t *testing.T) {
	ds, err := dataset.ReadCSV(strings.NewReader(""))
	if err != nil || len(ds) != 0 {
		t.Fatalf("expected empty dataset, got %v, %v", ds, err)
	}
}

func predictions() series.Table {
	m := series.NewMonth(2024, 11)
	return series.Table{
		{Item: "A", Month: m, Value: 7},
		{Item: "A", Month: m.Add(2), Value: 0},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := dataset.WriteCSV(&buf, predictions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Item,YYYYMM,y_pred\nA,202411,7\nA,202501,0\n"
	if buf.String() != want {
		t.Fatalf("expected %q, got %q", want, buf.String())
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := dataset.WriteXLSX(&buf, predictions()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ds, err := dataset.ReadXLSX(&buf, dataset.WithColumns(dataset.Columns{Value: dataset.HeaderPred}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds) != 2 || ds[1].Month != series.NewMonth(2025, 1) || ds[0].Value != 7 {
		t.Fatalf("unexpected dataset %+v", ds)
	}
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(csvPath, []byte(sample), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	ds, err := dataset.Load(csvPath)
	if err != nil || len(ds) != 3 {
		t.Fatalf("csv load: %d records, %v", len(ds), err)
	}

	f := excelize.NewFile()
	sheet := "history"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	rows := [][]any{{"Item", "YYYYMM", "Sales"}, {"A", 201901, 6.4}, {"A", 201902, 8.4}}
	for i, row := range rows {
		for j, v := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell: %v", err)
			}
		}
	}
	xlsxPath := filepath.Join(dir, "sales.xlsx")
	if err := f.SaveAs(xlsxPath); err != nil {
		t.Fatalf("save workbook: %v", err)
	}

	ds, err = dataset.Load(xlsxPath, dataset.WithSheet(sheet))
	if err != nil {
		t.Fatalf("xlsx load: %v", err)
	}
	if len(ds) != 2 || ds[0].Month != series.NewMonth(2019, 1) || ds[1].Value != 8.4 {
		t.Fatalf("unexpected dataset %+v", ds)
	}

	if _, err := dataset.Load(filepath.Join(dir, "sales.parquet")); !errors.Is(err, itemcast.ErrInvalidSetting) {
		t.Fatalf("expected ErrInvalidSetting, got %v", err)
	}
}
