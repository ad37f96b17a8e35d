// Package harness runs the per-item forecasting policy over a whole
// dataset in two ways and checks that they agree.
//
// [RunSerial] forecasts each item in turn in the calling goroutine.
// [RunDistributed] submits one task per item to a [Backend], waits for all
// of them at a single collect barrier and concatenates the results in
// completion order. [Reconcile] canonicalizes both prediction tables and
// compares them exactly, reporting every differing (item, month) key with
// the value each side produced.
//
// A partition that cannot be forecast does not stop the run: it is
// recorded as a [Failure] and the remaining items proceed. [WithFailFast]
// stops at the first failure instead.
package harness
