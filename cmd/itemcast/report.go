package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/xraph/itemcast/forecast"
	"github.com/xraph/itemcast/harness"
)

// maxMetricRows bounds the ranked models printed per item.
const maxMetricRows = 5

func printDiagnostics(w io.Writer, res *harness.Result) {
	diags := slices.Clone(res.Diagnostics)
	slices.SortFunc(diags, func(a, b *forecast.Diagnostics) int { return cmp.Compare(a.Item, b.Item) })

	for _, d := range diags {
		fmt.Fprintf(w, "%s  history=%d branch=%s", color.New(color.Bold).Sprint(d.Item), d.History, d.Branch)
		if d.Branch == forecast.BranchModel {
			fmt.Fprintf(w, " model=%s period=%d", d.Fitted, d.SeasonalPeriod)
		}
		fmt.Fprintln(w)
		if len(d.Metrics) == 0 {
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  model\tMASE\tRMSSE\tMAE\tRMSE\tMAPE\tSMAPE")
		for _, m := range d.Metrics[:min(len(d.Metrics), maxMetricRows)] {
			fmt.Fprintf(tw, "  %s\t%.3f\t%.3f\t%.2f\t%.2f\t%.3f\t%.3f\n", m.Model, m.MASE, m.RMSSE, m.MAE, m.RMSE, m.MAPE, m.SMAPE)
		}
		tw.Flush()
	}
	for _, f := range res.Failures {
		fmt.Fprintf(w, "%s  %s\n", color.New(color.FgRed).Sprint(f.Item), f.Err)
	}
}

func printVerdict(w io.Writer, out *harness.Outcome) {
	if out.Consistent() {
		fmt.Fprintf(w, "%s %s\n", color.New(color.FgGreen, color.Bold).Sprint("MATCH"), out.Report)
	} else {
		fmt.Fprintf(w, "%s %s\n", color.New(color.FgRed, color.Bold).Sprint("MISMATCH"), out.Report)
		serial, distributed := out.Serial.FailedItems(), out.Distributed.FailedItems()
		if !slices.Equal(serial, distributed) {
			fmt.Fprintf(w, "  failed items differ: serial=%v distributed=%v\n", serial, distributed)
		}
	}
	for _, res := range []*harness.Result{out.Serial, out.Distributed} {
		fmt.Fprintf(w, "  %-12s %d items  %d rows  %d failed  %s\n",
			res.Mode, res.Partitions, len(res.Predictions), len(res.Failures), res.Elapsed.Round(time.Millisecond))
	}
}
