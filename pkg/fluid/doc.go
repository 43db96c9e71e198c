// Package fluid is a fine-grained reactive runtime.
//
// Signals are observed value cells. Computations (effects, memos and roots) are
// functions that re-run whenever a signal they read during their last run
// changes. Dependencies are discovered while a computation executes, so a
// branch that is not taken is not depended upon.
//
// Every graph lives in a ReactiveContext. The context owns the arena of signals
// and computations, the currently executing computation and the batch
// scheduler. A context is single threaded: all propagation happens on the call
// stack of the write (or batch) that triggered it. Use Default to get a context
// bound to the calling goroutine.
//
//	rctx := fluid.NewReactiveContext()
//	n1 := fluid.CreateSignal(rctx, 1)
//	n2 := fluid.CreateSignal(rctx, 2)
//	prod, _ := fluid.CreateMemo(rctx, func() (int, error) {
//		return n1.Read() * n2.Read(), nil
//	})
//	fluid.CreateEffect(rctx, func() error {
//		fmt.Printf("%d * %d = %d\n", n1.Read(), n2.Read(), prod.Read())
//		return nil
//	})
//	fluid.Batch(rctx, func() error {
//		n1.Write(5)
//		return n2.Write(-1)
//	}) // prints "5 * -1 = -5" once
package fluid
