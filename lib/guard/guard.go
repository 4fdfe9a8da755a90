// Package guard provides a single-flight flag for operations that must not
// be triggered re-entrantly, such as a pending recommendation request.
package guard

import "sync/atomic"

// Guard is an in-process try-lock. The zero value is ready to use.
type Guard struct {
	busy atomic.Bool
}

// TryAcquire claims the guard. It returns false if another holder is active.
func (g *Guard) TryAcquire() bool {
	return g.busy.CompareAndSwap(false, true)
}

// Release frees the guard. Releasing an unheld guard is harmless, so a
// deferred Release stays correct on every exit path.
func (g *Guard) Release() {
	g.busy.Store(false)
}
