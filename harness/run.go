package harness

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/xraph/itemcast/forecast"
	"github.com/xraph/itemcast/series"
)

// Outcome pairs both runs over one dataset with their reconciliation.
type Outcome struct {
	Serial      *Result
	Distributed *Result
	Report      *Report
}

// Consistent reports whether both runs produced identical predictions and
// failed on the same items.
func (o *Outcome) Consistent() bool {
	return o.Report.AllMatch && slices.Equal(o.Serial.FailedItems(), o.Distributed.FailedItems())
}

// Run executes ds serially with policy, then through backend, and
// reconciles the two prediction tables. The backend's workers must have
// the forecast task registered with an equivalent policy.
func Run(ctx context.Context, ds series.Dataset, policy *forecast.Policy, backend Backend, opts ...Option) (*Outcome, error) {
	serial, err := RunSerial(ctx, ds, policy, opts...)
	if err != nil {
		return &Outcome{Serial: serial}, fmt.Errorf("harness: serial run: %w", err)
	}
	distributed, err := RunDistributed(ctx, ds, backend, opts...)
	if err != nil {
		return &Outcome{Serial: serial, Distributed: distributed}, fmt.Errorf("harness: distributed run: %w", err)
	}

	out := &Outcome{
		Serial:      serial,
		Distributed: distributed,
		Report:      Reconcile(serial.Predictions, distributed.Predictions),
	}
	o := newOptions(opts)
	if out.Consistent() {
		o.logger.Info("runs reconciled", slog.Int("rows", out.Report.SerialRows))
	} else {
		o.logger.Warn("runs diverge",
			slog.Int("mismatches", len(out.Report.Mismatches)),
			slog.Int("serial_failed", len(serial.Failures)),
			slog.Int("distributed_failed", len(distributed.Failures)),
		)
	}
	return out, nil
}
