package model

import "math"

// MAE is the mean absolute error.
func MAE(actual, pred []float64) float64 {
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - pred[i])
	}
	return sum / float64(len(actual))
}

// RMSE is the root mean squared error.
func RMSE(actual, pred []float64) float64 {
	return math.Sqrt(mse(actual, pred))
}

func mse(actual, pred []float64) float64 {
	var sum float64
	for i := range actual {
		d := actual[i] - pred[i]
		sum += d * d
	}
	return sum / float64(len(actual))
}

// MAPE is the mean absolute percentage error as a fraction. Periods with a
// zero actual are skipped; if every actual is zero the result is 0.
func MAPE(actual, pred []float64) float64 {
	var sum float64
	var n int
	for i := range actual {
		if actual[i] == 0 {
			continue
		}
		sum += math.Abs((actual[i] - pred[i]) / actual[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// SMAPE is the symmetric mean absolute percentage error as a fraction in
// [0, 2]. A period where actual and prediction are both zero scores 0.
func SMAPE(actual, pred []float64) float64 {
	var sum float64
	for i := range actual {
		den := math.Abs(actual[i]) + math.Abs(pred[i])
		if den == 0 {
			continue
		}
		sum += 2 * math.Abs(actual[i]-pred[i]) / den
	}
	return sum / float64(len(actual))
}

// naiveScale returns the in-sample mean absolute and mean squared error of
// the seasonal naive forecast with lag m (m < 1 means 1). Degenerate
// scales fall back to 1 so constant training windows still rank.
func naiveScale(train []float64, m int) (absScale, sqScale float64) {
	if m < 1 {
		m = 1
	}
	if len(train) <= m {
		return 1, 1
	}
	var sa, ss float64
	for t := m; t < len(train); t++ {
		d := train[t] - train[t-m]
		sa += math.Abs(d)
		ss += d * d
	}
	n := float64(len(train) - m)
	absScale, sqScale = sa/n, ss/n
	if absScale == 0 {
		absScale = 1
	}
	if sqScale == 0 {
		sqScale = 1
	}
	return absScale, sqScale
}

// MASE is the mean absolute scaled error against the seasonal naive
// forecast of lag m on train.
func MASE(actual, pred, train []float64, m int) float64 {
	scale, _ := naiveScale(train, m)
	return MAE(actual, pred) / scale
}

// RMSSE is the root mean squared scaled error against the seasonal naive
// forecast of lag m on train.
func RMSSE(actual, pred, train []float64, m int) float64 {
	_, scale := naiveScale(train, m)
	return math.Sqrt(mse(actual, pred) / scale)
}

// Finite reports whether every value is a finite number.
func Finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
