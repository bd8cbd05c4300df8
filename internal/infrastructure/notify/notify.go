// Package notify composes notifiers: fan-out to several channels and a fire-and-forget queue.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"MarketSniper/internal/ports"
)

// Fanout delivers each message to every channel and joins their errors.
type Fanout []ports.Notifier

var _ ports.Notifier = Fanout(nil)

// Notify sends to all channels, even after one fails.
func (f Fanout) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async queues messages for a background worker. Notify never blocks: when the queue
// is full the message is dropped and counted.
type Async struct {
	inner   ports.Notifier
	ch      chan string
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
}

var _ ports.Notifier = (*Async)(nil)

// NewAsync starts one delivery worker. Each delivery gets its own timeout.
func NewAsync(inner ports.Notifier, size int, timeout time.Duration, log *slog.Logger) *Async {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = slog.Default()
	}
	a := &Async{
		inner:   inner,
		ch:      make(chan string, size),
		timeout: timeout,
		logger:  log,
	}
	a.wg.Add(1)
	go a.drain()
	return a
}

func (a *Async) drain() {
	defer a.wg.Done()
	for msg := range a.ch {
		a.deliver(msg)
	}
}

func (a *Async) deliver(msg string) {
	ctx := context.Background()
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := a.inner.Notify(ctx, msg); err != nil {
		a.logger.Warn("notification delivery failed", "error", err)
	}
}

// Notify enqueues the message and always returns nil.
func (a *Async) Notify(_ context.Context, message string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return nil
	}

	select {
	case a.ch <- message:
	default:
		a.dropped.Add(1)
		a.logger.Warn("notification queue full, message dropped")
	}
	return nil
}

// Dropped returns how many messages were discarded.
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (a *Async) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	a.wg.Wait()
}
