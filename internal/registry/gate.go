package registry

import (
	"context"
	"sync"
)

// Gate bounds concurrent access to one model handle to a single in-flight
// request. The underlying runtime is not proven reentrant, so every caller
// must hold the gate for the duration of its model call.
type Gate struct {
	ch chan struct{}
}

func newGate() *Gate {
	return &Gate{ch: make(chan struct{}, 1)}
}

// Acquire blocks until the gate is free or ctx is done. On success it
// returns a release func that must be called exactly once; calling it more
// than once is a no-op. The usual pattern is:
//
//	release, err := gate.Acquire(ctx)
//	if err != nil { ... }
//	defer release()
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	select {
	case g.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() { <-g.ch })
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Busy is a non-blocking observability query. The answer is stale the
// moment it is returned; callers must still Acquire before proceeding.
func (g *Gate) Busy() bool {
	return len(g.ch) > 0
}
