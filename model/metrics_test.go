package model_test

import (
	"math"
	"testing"

	"github.com/xraph/itemcast/model"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestMetrics(t *testing.T) {
	actual := []float64{10, 20, 0, 40}
	pred := []float64{12, 18, 0, 44}

	if got := model.MAE(actual, pred); !approx(got, 2) {
		t.Fatalf("MAE: got %v", got)
	}
	if got := model.RMSE(actual, pred); !approx(got, math.Sqrt(6)) {
		t.Fatalf("RMSE: got %v", got)
	}
	// Zero actual skipped: (0.2 + 0.1 + 0.1) / 3.
	if got := model.MAPE(actual, pred); !approx(got, 0.4/3) {
		t.Fatalf("MAPE: got %v", got)
	}
	if got := model.SMAPE([]float64{0}, []float64{0}); got != 0 {
		t.Fatalf("SMAPE of zeros: got %v", got)
	}
}

func TestMASE_ScalesByNaive(t *testing.T) {
	train := []float64{1, 2, 3, 4, 5}
	actual := []float64{6, 7}
	pred := []float64{8, 9}

	// Naive lag-1 in-sample error is 1, so MASE equals MAE.
	if got := model.MASE(actual, pred, train, 1); !approx(got, 2) {
		t.Fatalf("MASE: got %v", got)
	}
}

func TestMASE_ConstantTrainFallsBack(t *testing.T) {
	train := []float64{3, 3, 3, 3}
	got := model.MASE([]float64{3}, []float64{4}, train, 1)
	if !approx(got, 1) {
		t.Fatalf("expected unit scale fallback, got %v", got)
	}
}

func TestFinite(t *testing.T) {
	if !model.Finite([]float64{1, 2}) {
		t.Fatal("expected finite")
	}
	if model.Finite([]float64{1, math.Inf(1)}) {
		t.Fatal("expected non-finite")
	}
}

func TestSummarize(t *testing.T) {
	s := model.Summarize([]float64{1, 2, 3, 4})
	if s.N != 4 || s.Min != 1 || s.Max != 4 || !approx(s.Mean, 2.5) || !approx(s.Median, 2.5) {
		t.Fatalf("unexpected stats: %+v", s)
	}

	if empty := model.Summarize(nil); empty.N != 0 {
		t.Fatalf("unexpected stats for empty series: %+v", empty)
	}
}

func TestSummarize_Autocorrelated(t *testing.T) {
	y := make([]float64, 60)
	for i := range y {
		y[i] = 50 + 2*float64(i)
	}
	s := model.Summarize(y)
	if s.LjungBoxLags != 10 || s.LjungBoxQ <= 0 {
		t.Fatalf("expected a ten-lag Ljung-Box test, got %+v", s)
	}
	if s.WhiteNoise || s.LjungBoxP >= 0.05 {
		t.Fatalf("a linear trend is not white noise: %+v", s)
	}
	if s.ACF1 < 0.9 {
		t.Fatalf("expected strong lag-1 autocorrelation, got %v", s.ACF1)
	}
	if s.Diffs != 1 {
		t.Fatalf("expected one suggested difference for a trend, got %d", s.Diffs)
	}
}

func TestInferPeriod_Seasonal(t *testing.T) {
	y := make([]float64, 96)
	for i := range y {
		y[i] = 100 + 30*math.Sin(2*math.Pi*float64(i)/12)
	}
	if got := model.InferPeriod(y); got != 12 {
		t.Fatalf("expected period 12, got %d", got)
	}
}

func TestInferPeriod_Flat(t *testing.T) {
	y := make([]float64, 60)
	for i := range y {
		y[i] = 7
	}
	if got := model.InferPeriod(y); got != 0 {
		t.Fatalf("expected no period for a flat series, got %d", got)
	}
}
