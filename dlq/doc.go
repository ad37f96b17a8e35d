// Package dlq is the dead letter queue for tasks that failed terminally.
//
// When a forecast task fails for good, the worker calls [Service.Push]
// with the task and its error. The entry keeps the encoded partition and
// the item label, so a failed item can be inspected, fixed upstream and
// replayed with [Service.Replay].
//
//	svc := dlq.NewService(store, store)
//	entries, _ := svc.DLQStore().ListDLQ(ctx, dlq.ListOpts{Limit: 50})
//	t, _ := svc.Replay(ctx, entries[0].ID)
package dlq
