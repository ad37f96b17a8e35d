package arima

import (
	"fmt"
	"math"
	"slices"
	"strings"

	goarima "github.com/sartorproj/goarima/arima"
	"github.com/sartorproj/goarima/sarima"
	"github.com/sartorproj/goarima/timeseries"

	"github.com/xraph/itemcast"
)

// estimator is the part of the goarima models a fit needs.
type estimator interface {
	Fit(series *timeseries.Series) error
	Predict(steps int) ([]float64, error)
}

// Model is an order fitted to a history by conditional sum of squares.
// Non-seasonal orders use goarima's ARIMA model, seasonal ones its SARIMA
// model.
type Model struct {
	order Order
	est   estimator
}

// Order returns the model's order.
func (m *Model) Order() Order { return m.order }

func newEstimator(o Order) estimator {
	if o.seasonal() {
		return sarima.New(o.P, o.D, o.Q, o.SP, o.SD, 0, o.M)
	}
	return goarima.New(o.P, o.D, o.Q)
}

// Fit estimates o on y. The estimation has no random component, so the
// same inputs always produce the same coefficients.
func Fit(y []float64, o Order) (*Model, error) {
	m := &Model{order: o, est: newEstimator(o)}
	if err := m.est.Fit(timeseries.New(slices.Clone(y))); err != nil {
		return nil, fmt.Errorf("%w: %s on %d observations: %w", itemcast.ErrModelFit, o.Name(), len(y), err)
	}
	if v := m.Sigma2(); math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s diverged", itemcast.ErrModelFit, o.Name())
	}
	return m, nil
}

// Sigma2 returns the in-sample residual variance.
func (m *Model) Sigma2() float64 {
	switch e := m.est.(type) {
	case *goarima.Model:
		return e.Variance
	case *sarima.Model:
		return e.Variance
	}
	return math.NaN()
}

// AIC returns the Akaike information criterion of the fit.
func (m *Model) AIC() float64 {
	switch e := m.est.(type) {
	case *goarima.Model:
		return e.AIC
	case *sarima.Model:
		return e.AIC
	}
	return math.NaN()
}

// Forecast returns the next h values after the training history.
func (m *Model) Forecast(h int) ([]float64, error) {
	f, err := m.est.Predict(h)
	if err != nil {
		return nil, fmt.Errorf("%s: forecast %d steps: %w", m.order.Name(), h, err)
	}
	return f, nil
}

// String describes the order, its coefficients and the residual variance.
func (m *Model) String() string {
	var b strings.Builder
	b.WriteString(m.order.Name())
	switch e := m.est.(type) {
	case *goarima.Model:
		fmt.Fprintf(&b, " c=%.4g", e.Intercept)
		formatCoefs(&b, "ar", e.ARCoeffs)
		formatCoefs(&b, "ma", e.MACoeffs)
	case *sarima.Model:
		fmt.Fprintf(&b, " c=%.4g", e.Intercept)
		formatCoefs(&b, "ar", e.ARCoeffs)
		formatCoefs(&b, "ma", e.MACoeffs)
		formatCoefs(&b, "sar", e.SARCoeffs)
	}
	fmt.Fprintf(&b, " sigma2=%.4g", m.Sigma2())
	return b.String()
}

func formatCoefs(b *strings.Builder, name string, v []float64) {
	if len(v) == 0 {
		return
	}
	parts := make([]string, len(v))
	for i, c := range v {
		parts[i] = fmt.Sprintf("%.4g", c)
	}
	fmt.Fprintf(b, " %s=[%s]", name, strings.Join(parts, " "))
}
