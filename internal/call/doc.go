// Package call adapts vendor callbacks to the three call shapes the bridge
// exposes:
//
//   - Result[T]: a single asynchronous result, completed at most once
//   - Emitter: named event streams with explicit subscribe/unsubscribe
//   - Gate[T]: a one-shot rendezvous where a vendor thread parks until the
//     application answers
//
// It also defines Error, the taxonomy every bridge failure is reported in.
//
// Vendor callbacks may arrive on any goroutine. Nothing in this package
// assumes the goroutine that issued the call is the one that completes it.
package call
