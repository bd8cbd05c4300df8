package usecase

import (
	"context"
	"log/slog"
)

// bestEffort runs fn and logs its failure. The error never reaches the caller.
func bestEffort(ctx context.Context, log *slog.Logger, op string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		log.Warn("best-effort operation failed", "op", op, "error", err)
	}
}

type noopMetrics struct{}

func (noopMetrics) PagesRequested(int)     {}
func (noopMetrics) RateLimited()           {}
func (noopMetrics) InspectionFailures(int) {}
func (noopMetrics) CartEntriesAdded(int)   {}
func (noopMetrics) PurchaseAttempt(string) {}
func (noopMetrics) ExchangeRate(float64)   {}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string) error { return nil }
