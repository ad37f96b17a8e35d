package model_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/xraph/itemcast"
	"github.com/xraph/itemcast/model"
)

type stubCandidate string

func (c stubCandidate) Name() string   { return string(c) }
func (c stubCandidate) Family() string { return "stub" }

type constFitted float64

func (f constFitted) Forecast(h int) ([]float64, error) {
	out := make([]float64, h)
	for i := range out {
		out[i] = float64(f)
	}
	return out, nil
}

func (f constFitted) String() string { return "const" }

type stubSearcher struct{ family string }

func (s stubSearcher) Family() string { return s.family }

func (s stubSearcher) Search(context.Context, []float64, model.Setup) (*model.Ranking, error) {
	return &model.Ranking{}, nil
}

func (s stubSearcher) Finalize(context.Context, []float64, model.Candidate, model.Setup) (model.Fitted, error) {
	return constFitted(0), nil
}

func TestRank_ByMASEThenName(t *testing.T) {
	cands := []model.Candidate{stubCandidate("c"), stubCandidate("b"), stubCandidate("a")}
	rows := []model.MetricRow{
		{Model: "c", MASE: 0.5},
		{Model: "b", MASE: 0.7},
		{Model: "a", MASE: 0.5},
	}

	gotC, gotR := model.Rank(cands, rows)
	want := []string{"a", "c", "b"}
	for i, name := range want {
		if gotC[i].Name() != name {
			t.Fatalf("position %d: expected %q, got %q", i, name, gotC[i].Name())
		}
		if gotR[i].Model != name {
			t.Fatalf("metric row %d not aligned: %q", i, gotR[i].Model)
		}
	}
}

func TestRanking_BestEmpty(t *testing.T) {
	var r *model.Ranking
	if r.Best() != nil {
		t.Fatal("nil ranking should have no best candidate")
	}
	if (&model.Ranking{}).Best() != nil {
		t.Fatal("empty ranking should have no best candidate")
	}
}

func TestRegistry(t *testing.T) {
	reg := model.NewRegistry(stubSearcher{family: "b"}, stubSearcher{family: "a"})

	if _, err := reg.Get("a"); err != nil {
		t.Fatalf("Get(a): %v", err)
	}
	_, err := reg.Get("missing")
	if !errors.Is(err, itemcast.ErrUnknownFamily) {
		t.Fatalf("expected ErrUnknownFamily, got %v", err)
	}

	fams := reg.Families()
	if len(fams) != 2 || fams[0] != "a" || fams[1] != "b" {
		t.Fatalf("unexpected families: %v", fams)
	}
}

func TestExpandingWindow(t *testing.T) {
	splits, err := model.ExpandingWindow(84, 12, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantCutoffs := []int{48, 60, 72}
	for i, s := range splits {
		if s.Cutoff != wantCutoffs[i] || s.Horizon != 12 {
			t.Fatalf("split %d: got %+v", i, s)
		}
	}

	if _, err := model.ExpandingWindow(40, 12, 3); !errors.Is(err, itemcast.ErrNotEnoughData) {
		t.Fatalf("expected ErrNotEnoughData, got %v", err)
	}
	if _, err := model.ExpandingWindow(84, 0, 3); !errors.Is(err, itemcast.ErrInvalidSetting) {
		t.Fatalf("expected ErrInvalidSetting, got %v", err)
	}
}

func TestCrossValidate_PerfectForecast(t *testing.T) {
	y := make([]float64, 60)
	for i := range y {
		y[i] = 5
	}
	setup := model.Setup{Horizon: 12, Folds: 3}

	row, err := model.CrossValidate(context.Background(), y, setup, 1, "const", func([]float64) (model.Fitted, error) {
		return constFitted(5), nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row.MASE != 0 || row.MAE != 0 || row.Folds != 3 {
		t.Fatalf("expected zero error over 3 folds, got %+v", row)
	}
}

func TestCrossValidate_RejectsNonFinite(t *testing.T) {
	y := make([]float64, 60)
	setup := model.Setup{Horizon: 12, Folds: 3}

	_, err := model.CrossValidate(context.Background(), y, setup, 1, "nan", func([]float64) (model.Fitted, error) {
		return constFitted(math.NaN()), nil
	})
	if !errors.Is(err, itemcast.ErrModelFit) {
		t.Fatalf("expected ErrModelFit, got %v", err)
	}
}

func TestCrossValidate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := model.CrossValidate(ctx, make([]float64, 60), model.Setup{Horizon: 12, Folds: 3}, 1, "x",
		func([]float64) (model.Fitted, error) { return constFitted(0), nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
