// Package arima is the built-in model family: a grid of small
// ARIMA(p,d,q) orders, with seasonal AR and differencing variants when the
// series shows a seasonal period, scored by expanding-window
// cross-validation.
//
// Orders are estimated with github.com/sartorproj/goarima by conditional
// sum of squares: non-seasonal orders through its arima package, seasonal
// ones through sarima. The estimation is deterministic, so a fit depends
// only on its inputs and never on which goroutine or process performs it.
package arima
