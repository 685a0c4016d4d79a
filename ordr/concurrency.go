package ordr

import (
	"context"
	"log/slog"
)

// slots limits how many render watchers hold a push-channel connection at once.
type slots chan struct{}

func newSlots(n int) slots {
	if n <= 0 {
		n = 1
	}
	return make(slots, n)
}

// acquire blocks until a slot is free. It returns false if ctx is cancelled first.
func (s slots) acquire(ctx context.Context) bool {
	select {
	case s <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s slots) release() {
	select {
	case <-s:
	default:
		slog.Warn("render slot release called without corresponding acquire", slog.String("component", "ordr"))
	}
}

func (s slots) inUse() int    { return len(s) }
func (s slots) capacity() int { return cap(s) }
