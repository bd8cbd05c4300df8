package scheduler

import (
	"context"
	"sync"
	"time"

	"MarketSniper/internal/ports"
)

// Interval runs a job on a fixed period. Runs never overlap: a tick that arrives while
// the job is still running is dropped.
type Interval struct {
	every     time.Duration
	immediate bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Trigger = (*Interval)(nil)

// NewInterval builds a trigger firing every period. With immediate set the job also
// runs once right after Start.
func NewInterval(every time.Duration, immediate bool) *Interval {
	return &Interval{every: every, immediate: immediate}
}

// Start begins ticking until ctx is done or Stop is called. Starting twice is a no-op.
func (i *Interval) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil || i.every <= 0 {
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	i.stop, i.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(i.every)
		defer ticker.Stop()

		if i.immediate {
			job(time.Now())
		}
		for {
			select {
			case t := <-ticker.C:
				job(t)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker and waits for a running job to return, or for ctx to expire.
func (i *Interval) Stop(ctx context.Context) error {
	i.mu.Lock()
	stop, done := i.stop, i.done
	i.stop, i.done = nil, nil
	i.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
