// Package model defines the forecasting-engine capability the per-item
// policy depends on: search a model family for ranked candidates, finalize
// the chosen candidate on the full history, and forecast from it.
//
// A family is provided by a [Searcher]. The policy never names a concrete
// library; it looks a family up in a [Registry] and drives it through this
// interface, so the branch selection and post-processing stay independent
// of whichever statistical engine performs the fit.
//
//	reg := model.NewRegistry()
//	reg.Register(arima.New())
//
//	s, _ := reg.Get("arima")
//	ranking, err := s.Search(ctx, y, model.Setup{Horizon: 12, Folds: 3, Seed: 42})
//	fitted, err := s.Finalize(ctx, y, ranking.Best(), setup)
//	future, err := fitted.Forecast(12)
//
// The package also carries the pieces families share: expanding-window
// cross-validation ([CrossValidate]), scale-free error metrics, and
// descriptive statistics ([Summarize]).
package model

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/itemcast"
)

// Setup fixes the search parameters.
type Setup struct {
	// Horizon is the number of steps forecast and validated per fold.
	Horizon int
	// Folds is the number of expanding-window validation folds.
	Folds int
	// SeasonalPeriod fixes the seasonal period; zero means infer.
	SeasonalPeriod int
	// Seed drives any random choice a family makes. The arima family has
	// none and ignores it.
	Seed uint64
}

// Candidate is one concrete model specification within a family.
type Candidate interface {
	// Name is unique within the family, e.g. "ARIMA(1,1,0)".
	Name() string
	// Family names the family the candidate belongs to.
	Family() string
}

// Fitted is a model trained on a history.
type Fitted interface {
	// Forecast returns the next h values after the training history.
	Forecast(h int) ([]float64, error)
	// String describes the fitted model, including its parameters.
	String() string
}

// Searcher is a model family: it ranks candidates and finalizes one.
type Searcher interface {
	// Family returns the family name the searcher is registered under.
	Family() string

	// Search evaluates the family's candidates on y and returns them
	// ranked best first. It fails with itemcast.ErrModelFit when no
	// candidate produces a usable forecast.
	Search(ctx context.Context, y []float64, setup Setup) (*Ranking, error)

	// Finalize retrains c on the whole of y.
	Finalize(ctx context.Context, y []float64, c Candidate, setup Setup) (Fitted, error)
}

// MetricRow holds the cross-validated scores of one candidate, averaged
// over folds.
type MetricRow struct {
	Model string  `json:"model"`
	MASE  float64 `json:"mase"`
	RMSSE float64 `json:"rmsse"`
	MAE   float64 `json:"mae"`
	RMSE  float64 `json:"rmse"`
	MAPE  float64 `json:"mape"`
	SMAPE float64 `json:"smape"`
	Folds int     `json:"folds"`
}

// Ranking is the outcome of a search: candidates best first and their
// metric table in the same order.
type Ranking struct {
	Candidates     []Candidate
	Metrics        []MetricRow
	SeasonalPeriod int
	// Rejected maps candidate names to the reason they were dropped.
	Rejected map[string]string
}

// Best returns the top-ranked candidate, or nil for an empty ranking.
func (r *Ranking) Best() Candidate {
	if r == nil || len(r.Candidates) == 0 {
		return nil
	}
	return r.Candidates[0]
}

// RankMetrics returns the metric table, best candidate first.
func (r *Ranking) RankMetrics() []MetricRow {
	if r == nil {
		return nil
	}
	return r.Metrics
}

// Rank orders candidates by mean MASE, breaking ties by name so the result
// does not depend on evaluation order. Rows and candidates must be aligned.
func Rank(cands []Candidate, rows []MetricRow) ([]Candidate, []MetricRow) {
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := rows[idx[a]], rows[idx[b]]
		if ra.MASE != rb.MASE {
			return ra.MASE < rb.MASE
		}
		return ra.Model < rb.Model
	})
	outC := make([]Candidate, len(idx))
	outR := make([]MetricRow, len(idx))
	for i, j := range idx {
		outC[i] = cands[j]
		outR[i] = rows[j]
	}
	return outC, outR
}

// Registry maps family names to searchers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	families map[string]Searcher
}

// NewRegistry creates a registry holding the given searchers.
func NewRegistry(searchers ...Searcher) *Registry {
	r := &Registry{families: make(map[string]Searcher)}
	for _, s := range searchers {
		r.Register(s)
	}
	return r
}

// Register adds s under its family name, replacing any earlier searcher.
func (r *Registry) Register(s Searcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.families[s.Family()] = s
}

// Get returns the searcher for family.
func (r *Registry) Get(family string) (Searcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.families[family]
	if !ok {
		return nil, fmt.Errorf("%w: %q", itemcast.ErrUnknownFamily, family)
	}
	return s, nil
}

// Families returns the registered family names in ascending order.
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.families))
	for name := range r.families {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
