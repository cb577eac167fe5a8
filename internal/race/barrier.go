package race

import (
	"context"
	"sync"
)

// Barrier holds prepared workers until a single broadcast release.
// The release is a channel close: the runtime wakes every parked
// receiver at once, so no worker observes the signal by polling a flag
// at its own cadence.
type Barrier struct {
	release chan struct{}
	once    sync.Once
}

func NewBarrier() *Barrier {
	return &Barrier{release: make(chan struct{})}
}

// Release fires the broadcast. Safe to call more than once.
func (b *Barrier) Release() {
	b.once.Do(func() { close(b.release) })
}

// Wait parks until the release broadcast or context cancellation.
// A worker's submission clock must start only after Wait returns nil.
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
