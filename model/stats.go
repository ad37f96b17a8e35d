package model

import (
	"math"

	"github.com/sartorproj/goarima/stats"
	"github.com/sartorproj/goarima/timeseries"
)

// whiteNoiseLevel is the Ljung-Box p-value at or above which residual
// autocorrelation is considered absent.
const whiteNoiseLevel = 0.05

// Stats summarises a series before fitting. It is diagnostic output only.
type Stats struct {
	N              int     `json:"n"`
	Mean           float64 `json:"mean"`
	Std            float64 `json:"std"`
	Min            float64 `json:"min"`
	Median         float64 `json:"median"`
	Max            float64 `json:"max"`
	ACF1           float64 `json:"acf1"`
	SeasonalPeriod int     `json:"seasonal_period"`
	// Diffs and SeasonalDiffs are the differencing orders a KPSS test and
	// the seasonal strength measure suggest.
	Diffs         int     `json:"diffs"`
	SeasonalDiffs int     `json:"seasonal_diffs"`
	LjungBoxQ     float64 `json:"ljung_box_q"`
	LjungBoxP     float64 `json:"ljung_box_p"`
	LjungBoxLags  int     `json:"ljung_box_lags"`
	WhiteNoise    bool    `json:"white_noise"`
}

// Summarize computes descriptive statistics, lag-1 autocorrelation, the
// inferred seasonal period, suggested differencing orders, and a Ljung-Box
// white-noise test.
func Summarize(y []float64) Stats {
	s := Stats{N: len(y)}
	if len(y) == 0 {
		return s
	}

	ts := timeseries.New(y)
	s.Mean = ts.Mean()
	s.Std = ts.Std()
	s.Min, s.Max = ts.Min(), ts.Max()
	s.Median = ts.Median()

	if acf := stats.ACF(ts, 1); len(acf) > 1 {
		s.ACF1 = acf[1]
	}
	s.SeasonalPeriod = InferPeriod(y)
	s.Diffs = stats.NDiffs(ts, 1, "kpss")
	if s.SeasonalPeriod >= 2 {
		s.SeasonalDiffs = stats.NSDiffs(ts, s.SeasonalPeriod, 1)
	}

	if lb := stats.LjungBox(ts, min(10, len(y)/5), 0); lb != nil && !math.IsNaN(lb.PValue) {
		s.LjungBoxQ = lb.Statistic
		s.LjungBoxP = lb.PValue
		s.LjungBoxLags = lb.Lags
		s.WhiteNoise = lb.PValue >= whiteNoiseLevel
	}
	return s
}

// Mean returns the arithmetic mean of y, or 0 for an empty slice.
func Mean(y []float64) float64 {
	return timeseries.New(y).Mean()
}

// InferPeriod returns the seasonal period suggested by the autocorrelation
// of the first differences: the lag in [2, 24] with the highest
// significant local peak, or 0 when no lag qualifies. At least two full
// cycles of the period must fit in the series.
func InferPeriod(y []float64) int {
	if len(y) < 8 {
		return 0
	}
	d := timeseries.New(y).Diff()

	maxLag := min(24, d.Len()/2)
	acf := stats.ACF(d, maxLag+1)
	if len(acf) < 4 {
		return 0
	}
	band := 1.96 / math.Sqrt(float64(d.Len()))

	best, bestVal := 0, band
	for k := 2; k < len(acf)-1; k++ {
		if acf[k] > acf[k-1] && acf[k] >= acf[k+1] && acf[k] > bestVal {
			best, bestVal = k, acf[k]
		}
	}
	return best
}
