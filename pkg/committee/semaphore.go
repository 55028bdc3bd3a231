package committee

import (
	"context"
)

// Semaphore bounds concurrent analyst and reviewer invocations so a
// run respects the rate limits of the collaborators behind them.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore creates a semaphore admitting up to limit holders.
// A limit below one is clamped to one.
func NewSemaphore(limit int) *Semaphore {
	if limit < 1 {
		limit = 1
	}
	return &Semaphore{
		slots: make(chan struct{}, limit),
	}
}

// Acquire blocks until a slot is free or the context ends
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot. Callers release exactly what they acquired.
func (s *Semaphore) Release() {
	<-s.slots
}
