package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/model"
	"github.com/xraph/itemcast/model/arima"
	"github.com/xraph/itemcast/series"
)

// Branch names the path a partition took through the policy.
type Branch string

const (
	// BranchMean forecasts the mean of the whole history.
	BranchMean Branch = "mean"
	// BranchModel forecasts from the best candidate of a model search.
	BranchModel Branch = "model"
)

// Stage names the step at which a partition failed.
type Stage string

const (
	StageValidate Stage = "validate"
	StageSearch   Stage = "search"
	StageFinalize Stage = "finalize"
	StageForecast Stage = "forecast"
)

// PartitionError reports a failure forecasting one item.
type PartitionError struct {
	Item  string
	Stage Stage
	Err   error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("forecast item %q: %s: %v", e.Item, e.Stage, e.Err)
}

func (e *PartitionError) Unwrap() error { return e.Err }

// Diagnostics describes how a partition was forecast. It is informational
// and never part of the prediction output.
type Diagnostics struct {
	Item           string            `json:"item"`
	History        int               `json:"history"`
	Branch         Branch            `json:"branch"`
	Model          string            `json:"model,omitempty"`
	Fitted         string            `json:"fitted,omitempty"`
	SeasonalPeriod int               `json:"seasonal_period"`
	Stats          model.Stats       `json:"stats"`
	Metrics        []model.MetricRow `json:"metrics,omitempty"`
	Rejected       int               `json:"rejected"`
	Elapsed        time.Duration     `json:"elapsed"`
}

// Policy turns one item's history into its future predictions. It holds
// no per-item state and is safe for concurrent use.
type Policy struct {
	cfg    itemcast.ForecastConfig
	models *model.Registry
	logger *slog.Logger
}

// New creates a policy that searches the families in models. A nil
// registry gets the built-in ARIMA family.
func New(models *model.Registry, opts ...Option) (*Policy, error) {
	p := &Policy{
		cfg:    itemcast.DefaultForecastConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := p.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	if models == nil {
		models = model.NewRegistry(arima.New(arima.WithLogger(p.logger)))
	}
	if _, err := models.Get(p.cfg.Family); err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	p.models = models
	return p, nil
}

// Config returns the policy's fixed parameters.
func (p *Policy) Config() itemcast.ForecastConfig { return p.cfg }

// Forecast predicts the configured horizon of months after the last
// observed month of part. Short histories repeat the mean of every
// observed value; longer ones are forecast by the best model the search
// finds. Predictions are clipped at zero and rounded to integers.
func (p *Policy) Forecast(ctx context.Context, part series.Partition) ([]series.Prediction, *Diagnostics, error) {
	start := time.Now()

	item, err := part.ItemKey()
	if err != nil {
		return nil, nil, &PartitionError{Item: part.Item, Stage: StageValidate, Err: err}
	}
	if part.Len() == 0 {
		return nil, nil, &PartitionError{Item: item, Stage: StageValidate, Err: itemcast.ErrEmptyPartition}
	}
	part, err = part.Normalize()
	if err != nil {
		return nil, nil, &PartitionError{Item: item, Stage: StageValidate, Err: err}
	}

	y := part.Values()
	diag := &Diagnostics{Item: item, History: len(y), Stats: model.Summarize(y)}

	var raw []float64
	if len(y) < p.cfg.MinModelHistory() {
		diag.Branch = BranchMean
		raw = constant(model.Mean(y), p.cfg.Horizon)
	} else {
		diag.Branch = BranchModel
		raw, err = p.search(ctx, item, y, diag)
		if err != nil {
			return nil, nil, err
		}
	}

	preds := make([]series.Prediction, len(raw))
	last := part.Last()
	for i, v := range raw {
		preds[i] = series.Prediction{Item: item, Month: last.Add(i + 1), Value: Round(v)}
	}

	diag.Elapsed = time.Since(start)
	p.logger.Debug("item forecast",
		"item", item,
		"history", diag.History,
		"branch", diag.Branch,
		"model", diag.Model,
		"seasonal_period", diag.SeasonalPeriod,
		"elapsed", diag.Elapsed,
	)
	return preds, diag, nil
}

func (p *Policy) search(ctx context.Context, item string, y []float64, diag *Diagnostics) ([]float64, error) {
	searcher, err := p.models.Get(p.cfg.Family)
	if err != nil {
		return nil, &PartitionError{Item: item, Stage: StageSearch, Err: err}
	}
	setup := model.Setup{
		Horizon:        p.cfg.Horizon,
		Folds:          p.cfg.Folds,
		SeasonalPeriod: p.cfg.SeasonalPeriod,
		Seed:           p.cfg.Seed,
	}

	ranking, err := searcher.Search(ctx, y, setup)
	if err != nil {
		return nil, &PartitionError{Item: item, Stage: StageSearch, Err: fitErr(err)}
	}
	best := ranking.Best()
	if best == nil {
		return nil, &PartitionError{Item: item, Stage: StageSearch,
			Err: fmt.Errorf("%w: empty ranking", itemcast.ErrModelFit)}
	}
	diag.Model = best.Name()
	diag.Metrics = ranking.RankMetrics()
	diag.SeasonalPeriod = ranking.SeasonalPeriod
	diag.Rejected = len(ranking.Rejected)

	fitted, err := searcher.Finalize(ctx, y, best, setup)
	if err != nil {
		return nil, &PartitionError{Item: item, Stage: StageFinalize, Err: fitErr(err)}
	}
	diag.Fitted = fitted.String()

	out, err := fitted.Forecast(p.cfg.Horizon)
	if err == nil && (len(out) != p.cfg.Horizon || !model.Finite(out)) {
		err = fmt.Errorf("%w: %s returned %d values", itemcast.ErrModelFit, best.Name(), len(out))
	}
	if err != nil {
		return nil, &PartitionError{Item: item, Stage: StageForecast, Err: fitErr(err)}
	}
	return out, nil
}

// fitErr makes sure a model failure matches itemcast.ErrModelFit while
// cancellation stays recognisable.
func fitErr(err error) error {
	if errors.Is(err, itemcast.ErrModelFit) || errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", itemcast.ErrModelFit, err)
}

// Round clips v at zero and rounds it to the nearest integer, ties to
// even.
func Round(v float64) int {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return int(math.RoundToEven(v))
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
