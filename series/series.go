// Package series defines the tabular data the forecaster works on: monthly
// history records, single-item partitions, and prediction tables.
//
// A [Dataset] is the raw input. [GroupByItem] splits it into one
// [Partition] per item in ascending item order, so every run mode sees the
// same partitioning. A partition is consumed once by the forecasting
// policy and yields a fixed number of [Prediction] rows.
//
// [Table] holds predictions from any number of items. [Table.Canonical]
// sorts rows by (item, month), the order the reconciliation step compares
// in.
package series

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/xraph/itemcast"
)

// Record is one observation: an item's value for one calendar month.
type Record struct {
	Item  string  `json:"item" msgpack:"item"`
	Month Month   `json:"month" msgpack:"month"`
	Value float64 `json:"value" msgpack:"value"`
}

// Dataset is an unordered collection of records for any number of items.
type Dataset []Record

// Items returns the distinct item identifiers in ascending order.
func (d Dataset) Items() []string {
	seen := make(map[string]struct{}, len(d))
	items := make([]string, 0)
	for _, r := range d {
		if _, ok := seen[r.Item]; ok {
			continue
		}
		seen[r.Item] = struct{}{}
		items = append(items, r.Item)
	}
	slices.Sort(items)
	return items
}

// GroupByItem splits the dataset into one partition per item, ordered by
// item identifier. Records keep their input order inside a partition; the
// dataset itself is not modified.
func GroupByItem(d Dataset) []Partition {
	index := make(map[string]int)
	parts := make([]Partition, 0)
	for _, r := range d {
		i, ok := index[r.Item]
		if !ok {
			i = len(parts)
			index[r.Item] = i
			parts = append(parts, Partition{Item: r.Item})
		}
		parts[i].Records = append(parts[i].Records, r)
	}
	slices.SortFunc(parts, func(a, b Partition) int { return cmp.Compare(a.Item, b.Item) })
	return parts
}

// Partition is the history of exactly one item.
type Partition struct {
	Item    string   `json:"item" msgpack:"item"`
	Records []Record `json:"records" msgpack:"records"`
}

// Len returns the number of observed months.
func (p Partition) Len() int { return len(p.Records) }

// ItemKey returns the single item identifier carried by the records. An
// empty partition falls back to p.Item. More than one distinct identifier
// is a malformed partition.
func (p Partition) ItemKey() (string, error) {
	if len(p.Records) == 0 {
		return p.Item, nil
	}
	key := p.Records[0].Item
	for _, r := range p.Records[1:] {
		if r.Item != key {
			return "", fmt.Errorf("%w: items %q and %q in one partition",
				itemcast.ErrMalformedPartition, key, r.Item)
		}
	}
	if p.Item != "" && p.Item != key {
		return "", fmt.Errorf("%w: partition labelled %q holds item %q",
			itemcast.ErrMalformedPartition, p.Item, key)
	}
	return key, nil
}

// Normalize returns a copy of the partition sorted by month. Months must be
// unique and values finite and non-negative.
func (p Partition) Normalize() (Partition, error) {
	out := Partition{Item: p.Item, Records: slices.Clone(p.Records)}
	slices.SortStableFunc(out.Records, func(a, b Record) int { return cmp.Compare(a.Month, b.Month) })

	for i, r := range out.Records {
		if r.Value < 0 || math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			return Partition{}, fmt.Errorf("%w: item %q month %s value %v",
				itemcast.ErrInvalidRecord, r.Item, r.Month, r.Value)
		}
		if i > 0 && out.Records[i-1].Month == r.Month {
			return Partition{}, fmt.Errorf("%w: item %q has month %s twice",
				itemcast.ErrMalformedPartition, r.Item, r.Month)
		}
	}
	return out, nil
}

// Values returns the observed values in record order.
func (p Partition) Values() []float64 {
	v := make([]float64, len(p.Records))
	for i, r := range p.Records {
		v[i] = r.Value
	}
	return v
}

// Last returns the latest observed month. The partition must be
// non-empty and normalized.
func (p Partition) Last() Month {
	return p.Records[len(p.Records)-1].Month
}

// Prediction is one forecast row: an item's predicted value for a future
// month.
type Prediction struct {
	Item  string `json:"item" msgpack:"item"`
	Month Month  `json:"month" msgpack:"month"`
	Value int    `json:"y_pred" msgpack:"y_pred"`
}

// Key identifies a prediction row.
type Key struct {
	Item  string
	Month Month
}

// Key returns the row's (item, month) key.
func (p Prediction) Key() Key { return Key{Item: p.Item, Month: p.Month} }

// Compare orders keys by item, then month.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.Item, o.Item); c != 0 {
		return c
	}
	return cmp.Compare(k.Month, o.Month)
}

// Table is a set of prediction rows in arbitrary order.
type Table []Prediction

// Canonical returns a copy sorted by (item, month). Rows with equal keys
// keep their relative order.
func (t Table) Canonical() Table {
	out := slices.Clone(t)
	slices.SortStableFunc(out, func(a, b Prediction) int { return a.Key().Compare(b.Key()) })
	return out
}

// ByItem returns the rows of one item in table order.
func (t Table) ByItem(item string) Table {
	var out Table
	for _, p := range t {
		if p.Item == item {
			out = append(out, p)
		}
	}
	return out
}
