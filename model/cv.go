package model

import (
	"context"
	"fmt"

	"github.com/xraph/itemcast"
)

// Split is one expanding-window fold: train on y[:Cutoff], validate on
// y[Cutoff:Cutoff+Horizon].
type Split struct {
	Cutoff  int
	Horizon int
}

// ExpandingWindow returns folds whose validation windows tile the last
// folds*horizon observations, oldest first.
func ExpandingWindow(n, horizon, folds int) ([]Split, error) {
	if horizon <= 0 || folds <= 0 {
		return nil, fmt.Errorf("%w: horizon %d folds %d", itemcast.ErrInvalidSetting, horizon, folds)
	}
	first := n - horizon*folds
	if first < horizon {
		return nil, fmt.Errorf("%w: %d observations cannot hold %d folds of %d",
			itemcast.ErrNotEnoughData, n, folds, horizon)
	}
	splits := make([]Split, folds)
	for k := range splits {
		splits[k] = Split{Cutoff: first + k*horizon, Horizon: horizon}
	}
	return splits, nil
}

// FitFunc trains a model on a training window.
type FitFunc func(train []float64) (Fitted, error)

// CrossValidate fits and scores a candidate on every expanding-window fold
// and returns the fold-averaged metrics. Any fold failure, including a
// non-finite forecast, fails the candidate.
func CrossValidate(ctx context.Context, y []float64, setup Setup, period int, name string, fit FitFunc) (MetricRow, error) {
	splits, err := ExpandingWindow(len(y), setup.Horizon, setup.Folds)
	if err != nil {
		return MetricRow{}, err
	}

	row := MetricRow{Model: name, Folds: len(splits)}
	for k, s := range splits {
		if err := ctx.Err(); err != nil {
			return MetricRow{}, err
		}
		train := y[:s.Cutoff]
		test := y[s.Cutoff : s.Cutoff+s.Horizon]

		m, err := fit(train)
		if err != nil {
			return MetricRow{}, fmt.Errorf("fold %d: %w", k+1, err)
		}
		pred, err := m.Forecast(s.Horizon)
		if err != nil {
			return MetricRow{}, fmt.Errorf("fold %d: %w", k+1, err)
		}
		if len(pred) != s.Horizon || !Finite(pred) {
			return MetricRow{}, fmt.Errorf("fold %d: %w: non-finite forecast", k+1, itemcast.ErrModelFit)
		}

		row.MASE += MASE(test, pred, train, period)
		row.RMSSE += RMSSE(test, pred, train, period)
		row.MAE += MAE(test, pred)
		row.RMSE += RMSE(test, pred)
		row.MAPE += MAPE(test, pred)
		row.SMAPE += SMAPE(test, pred)
	}

	n := float64(len(splits))
	row.MASE /= n
	row.RMSSE /= n
	row.MAE /= n
	row.RMSE /= n
	row.MAPE /= n
	row.SMAPE /= n
	return row, nil
}
