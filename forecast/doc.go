// Package forecast implements the per-item forecasting policy.
//
// Given the history of one item, [Policy.Forecast] returns one prediction
// per future month of the horizon:
//
//   - histories no longer than SufficiencyFactor*Horizon months predict
//     the mean of every observed value for each future month
//   - longer histories run a model search over a single family, finalize
//     the best-ranked candidate on the whole history, and forecast from it
//
// Both paths clip at zero and round to integers. The item identifier is
// attached to predictions here and nowhere else, and a partition whose
// records carry more than one item is rejected.
//
// Failures are returned as *[PartitionError], which names the item and the
// stage that failed and unwraps to the underlying cause.
package forecast
