package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xraph/itemcast/series"
)

// Mismatch is one key whose predicted value differs between the two runs.
// A nil side means the row is missing from that run.
type Mismatch struct {
	Item        string
	Month       series.Month
	Serial      *int
	Distributed *int
}

// Report is the outcome of reconciling two prediction tables.
type Report struct {
	AllMatch        bool
	Mismatches      []Mismatch
	SerialRows      int
	DistributedRows int
}

// Reconcile compares a serial table a against a distributed table b. Both
// are canonicalized first, so row order never affects the verdict; values
// must match exactly. Rows present on one side only are reported with a
// nil value for the other side.
func Reconcile(a, b series.Table) *Report {
	ca, cb := a.Canonical(), b.Canonical()
	rep := &Report{SerialRows: len(ca), DistributedRows: len(cb)}

	i, j := 0, 0
	for i < len(ca) || j < len(cb) {
		switch {
		case j >= len(cb):
			rep.Mismatches = append(rep.Mismatches, onlySerial(ca[i]))
			i++
		case i >= len(ca):
			rep.Mismatches = append(rep.Mismatches, onlyDistributed(cb[j]))
			j++
		default:
			switch c := ca[i].Key().Compare(cb[j].Key()); {
			case c < 0:
				rep.Mismatches = append(rep.Mismatches, onlySerial(ca[i]))
				i++
			case c > 0:
				rep.Mismatches = append(rep.Mismatches, onlyDistributed(cb[j]))
				j++
			default:
				if ca[i].Value != cb[j].Value {
					sv, dv := ca[i].Value, cb[j].Value
					rep.Mismatches = append(rep.Mismatches, Mismatch{
						Item: ca[i].Item, Month: ca[i].Month, Serial: &sv, Distributed: &dv,
					})
				}
				i++
				j++
			}
		}
	}

	rep.AllMatch = len(rep.Mismatches) == 0
	return rep
}

func onlySerial(p series.Prediction) Mismatch {
	v := p.Value
	return Mismatch{Item: p.Item, Month: p.Month, Serial: &v}
}

func onlyDistributed(p series.Prediction) Mismatch {
	v := p.Value
	return Mismatch{Item: p.Item, Month: p.Month, Distributed: &v}
}

// String renders the verdict followed by one line per mismatch.
func (r *Report) String() string {
	var b strings.Builder
	if r.AllMatch {
		fmt.Fprintf(&b, "match: %d rows identical", r.SerialRows)
		return b.String()
	}
	fmt.Fprintf(&b, "mismatch: %d of %d/%d rows differ", len(r.Mismatches), r.SerialRows, r.DistributedRows)
	for _, m := range r.Mismatches {
		fmt.Fprintf(&b, "\n  %q %s serial=%s distributed=%s", m.Item, m.Month, side(m.Serial), side(m.Distributed))
	}
	return b.String()
}

func side(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
