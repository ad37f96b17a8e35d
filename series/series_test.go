package series_test

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/series"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		in   string
		want series.Month
	}{
		{"202401", series.NewMonth(2024, time.January)},
		{"2024-12", series.NewMonth(2024, time.December)},
		{"2024/03", series.NewMonth(2024, time.March)},
		{"2023-07-19", series.NewMonth(2023, time.July)},
		{" 199902 ", series.NewMonth(1999, time.February)},
	}
	for _, tt := range tests {
		got, err := series.ParseMonth(tt.in)
		if err != nil {
			t.Errorf("ParseMonth(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMonth(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "202413", "2024-00", "Jan 2024", "20241"} {
		if _, err := series.ParseMonth(bad); !errors.Is(err, itemcast.ErrInvalidRecord) {
			t.Errorf("ParseMonth(%q) error = %v, want ErrInvalidRecord", bad, err)
		}
	}
}

func TestMonthArithmetic(t *testing.T) {
	m := series.NewMonth(2023, time.November)
	next := m.Add(3)
	if next.String() != "2024-02" {
		t.Errorf("Add(3) = %s, want 2024-02", next)
	}
	if next.Sub(m) != 3 {
		t.Errorf("Sub = %d, want 3", next.Sub(m))
	}
	if m.Add(-11).String() != "2022-12" {
		t.Errorf("Add(-11) = %s, want 2022-12", m.Add(-11))
	}
	if got := m.Time(); got.Day() != 1 || got.Month() != time.November {
		t.Errorf("Time() = %v", got)
	}

	var parsed series.Month
	if err := parsed.UnmarshalText([]byte("2024-02")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if parsed != next {
		t.Errorf("UnmarshalText = %s, want %s", parsed, next)
	}
}

func TestGroupByItem(t *testing.T) {
	jan := series.NewMonth(2024, time.January)
	ds := series.Dataset{
		{Item: "B", Month: jan, Value: 1},
		{Item: "A", Month: jan.Add(1), Value: 2},
		{Item: "B", Month: jan.Add(1), Value: 3},
		{Item: "A", Month: jan, Value: 4},
	}

	parts := series.GroupByItem(ds)
	if len(parts) != 2 {
		t.Fatalf("expected 2 partitions, got %d", len(parts))
	}
	if parts[0].Item != "A" || parts[1].Item != "B" {
		t.Errorf("partition order = %q, %q; want A, B", parts[0].Item, parts[1].Item)
	}
	if parts[0].Len() != 2 || parts[1].Len() != 2 {
		t.Errorf("partition sizes = %d, %d", parts[0].Len(), parts[1].Len())
	}
	// Input order is preserved until Normalize.
	if parts[0].Records[0].Value != 2 {
		t.Errorf("first A record value = %v, want 2", parts[0].Records[0].Value)
	}

	again := series.GroupByItem(ds)
	for i := range parts {
		if parts[i].Item != again[i].Item {
			t.Fatal("grouping is not deterministic")
		}
	}

	if items := ds.Items(); len(items) != 2 || items[0] != "A" {
		t.Errorf("Items() = %v", items)
	}
}

func TestPartitionNormalize(t *testing.T) {
	jan := series.NewMonth(2024, time.January)
	p := series.Partition{Item: "A", Records: []series.Record{
		{Item: "A", Month: jan.Add(2), Value: 3},
		{Item: "A", Month: jan, Value: 1},
		{Item: "A", Month: jan.Add(1), Value: 2},
	}}

	n, err := p.Normalize()
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	for i, want := range []float64{1, 2, 3} {
		if n.Records[i].Value != want {
			t.Errorf("record %d value = %v, want %v", i, n.Records[i].Value, want)
		}
	}
	if n.Last() != jan.Add(2) {
		t.Errorf("Last() = %s", n.Last())
	}
	if p.Records[0].Value != 3 {
		t.Error("Normalize modified the original partition")
	}

	dup := series.Partition{Item: "A", Records: []series.Record{
		{Item: "A", Month: jan, Value: 1},
		{Item: "A", Month: jan, Value: 2},
	}}
	if _, err := dup.Normalize(); !errors.Is(err, itemcast.ErrMalformedPartition) {
		t.Errorf("duplicate months error = %v, want ErrMalformedPartition", err)
	}

	neg := series.Partition{Item: "A", Records: []series.Record{{Item: "A", Month: jan, Value: -1}}}
	if _, err := neg.Normalize(); !errors.Is(err, itemcast.ErrInvalidRecord) {
		t.Errorf("negative value error = %v, want ErrInvalidRecord", err)
	}
}

func TestPartitionItemKey(t *testing.T) {
	jan := series.NewMonth(2024, time.January)

	mixed := series.Partition{Records: []series.Record{
		{Item: "A", Month: jan},
		{Item: "B", Month: jan.Add(1)},
	}}
	if _, err := mixed.ItemKey(); !errors.Is(err, itemcast.ErrMalformedPartition) {
		t.Errorf("mixed items error = %v, want ErrMalformedPartition", err)
	}

	unnamed := series.Partition{Records: []series.Record{{Month: jan}, {Month: jan.Add(1)}}}
	key, err := unnamed.ItemKey()
	if err != nil || key != "" {
		t.Errorf("unnamed ItemKey() = %q, %v; want empty key, nil", key, err)
	}
}

func TestTableCanonical(t *testing.T) {
	jan := series.NewMonth(2024, time.January)
	tbl := series.Table{
		{Item: "B", Month: jan, Value: 1},
		{Item: "A", Month: jan.Add(1), Value: 2},
		{Item: "A", Month: jan, Value: 3},
	}
	c := tbl.Canonical()
	want := []series.Key{
		{Item: "A", Month: jan},
		{Item: "A", Month: jan.Add(1)},
		{Item: "B", Month: jan},
	}
	for i, k := range want {
		if c[i].Key() != k {
			t.Errorf("row %d key = %v, want %v", i, c[i].Key(), k)
		}
	}
	if tbl[0].Item != "B" {
		t.Error("Canonical modified the original table")
	}
	if got := tbl.ByItem("A"); len(got) != 2 {
		t.Errorf("ByItem(A) = %d rows, want 2", len(got))
	}
}
