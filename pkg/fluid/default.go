package fluid

import (
	"sync"

	"github.com/petermattis/goid"
)

var contexts sync.Map

// Default returns the ReactiveContext bound to the calling goroutine, creating
// it on first use. Each goroutine gets its own independent graph.
func Default() *ReactiveContext {
	gid := goid.Get()

	if rctx, ok := contexts.Load(gid); ok {
		return rctx.(*ReactiveContext)
	}

	rctx := NewReactiveContext()
	contexts.Store(gid, rctx)
	return rctx
}

// ReleaseDefault forgets the calling goroutine's context. A goroutine that
// used Default should call it before exiting.
func ReleaseDefault() {
	contexts.Delete(goid.Get())
}
