package arima

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/model"
)

// Option configures a Searcher.
type Option func(*Searcher)

// WithLogger sets the logger used for per-candidate debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Searcher) { s.logger = l }
}

// Searcher is the ARIMA model family. It is stateless and safe for
// concurrent use.
type Searcher struct {
	logger *slog.Logger
}

var _ model.Searcher = (*Searcher)(nil)

// New creates an ARIMA searcher.
func New(opts ...Option) *Searcher {
	s := &Searcher{logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Family implements model.Searcher.
func (s *Searcher) Family() string { return Family }

// Search cross-validates every order in the grid and ranks the survivors.
// Orders that fail to fit on any fold are recorded in Ranking.Rejected.
func (s *Searcher) Search(ctx context.Context, y []float64, setup model.Setup) (*model.Ranking, error) {
	period := setup.SeasonalPeriod
	if period == 0 {
		period = model.InferPeriod(y)
	}
	scalePeriod := 1
	if period >= 2 {
		scalePeriod = period
	}

	firstTrain := len(y) - setup.Horizon*setup.Folds
	grid := Grid(period, firstTrain)

	var (
		cands    []model.Candidate
		rows     []model.MetricRow
		rejected = make(map[string]string)
	)
	for _, o := range grid {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fit := func(train []float64) (model.Fitted, error) {
			return Fit(train, o)
		}
		row, err := model.CrossValidate(ctx, y, setup, scalePeriod, o.Name(), fit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			rejected[o.Name()] = err.Error()
			s.logger.Debug("arima candidate rejected", "order", o.Name(), "error", err)
			continue
		}
		cands = append(cands, o)
		rows = append(rows, row)
	}

	if len(cands) == 0 {
		return nil, fmt.Errorf("%w: no arima candidate converged out of %d", itemcast.ErrModelFit, len(grid))
	}
	cands, rows = model.Rank(cands, rows)
	return &model.Ranking{
		Candidates:     cands,
		Metrics:        rows,
		SeasonalPeriod: period,
		Rejected:       rejected,
	}, nil
}

// Finalize implements model.Searcher.
func (s *Searcher) Finalize(ctx context.Context, y []float64, c model.Candidate, _ model.Setup) (model.Fitted, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o, ok := c.(Order)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not an arima order", itemcast.ErrUnknownFamily, c)
	}
	m, err := Fit(y, o)
	if err != nil {
		return nil, fmt.Errorf("%w: finalize %s: %w", itemcast.ErrModelFit, o.Name(), err)
	}
	return m, nil
}
