package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"MarketSniper/internal/domain"
	"MarketSniper/internal/ports"
)

// AcceptanceEngine decides which inspected listings go to the cart.
type AcceptanceEngine struct {
	cart     ports.CartRepository
	notifier ports.Notifier
	metrics  ports.Metrics
	messages *Messages
	logger   *slog.Logger
}

// NewAcceptanceEngine wires the cart and the alert channel. Nil notifier and metrics are no-ops.
func NewAcceptanceEngine(cart ports.CartRepository, notifier ports.Notifier, metrics ports.Metrics, messages *Messages, log *slog.Logger) *AcceptanceEngine {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if messages == nil {
		messages = NewMessages("en")
	}
	if log == nil {
		log = slog.Default()
	}
	return &AcceptanceEngine{
		cart:     cart,
		notifier: notifier,
		metrics:  metrics,
		messages: messages,
		logger:   log,
	}
}

// Evaluate applies the acceptance rules to every inspection result. It returns the
// accepted entries and the distinct inspection errors in first-seen order.
func (e *AcceptanceEngine) Evaluate(task domain.Task, listings map[string]domain.Listing, results []domain.InspectionResult) ([]domain.CartEntry, []string) {
	var (
		entries []domain.CartEntry
		errs    []string
	)
	seen := make(map[string]struct{})

	for _, result := range results {
		if result.Failed() {
			msg := result.Describe()
			if _, ok := seen[msg]; !ok {
				seen[msg] = struct{}{}
				errs = append(errs, msg)
			}
			continue
		}

		if result.Float > task.Float {
			continue
		}

		listing, ok := listings[result.ListingID]
		if !ok || !listing.Priced() {
			continue
		}

		if listing.Total() > task.Price {
			continue
		}

		entries = append(entries, domain.CartEntry{
			ListingID:  result.ListingID,
			ItemID:     result.AssetID,
			Subtotal:   listing.Price,
			Fee:        listing.Fee,
			AssetFloat: result.Float,
			TaskID:     task.ID,
		})
	}

	return entries, errs
}

// Accept evaluates the results, stores accepted entries in one write and then reports
// inspection errors in one message, whether or not the write succeeded.
func (e *AcceptanceEngine) Accept(ctx context.Context, task domain.Task, listings map[string]domain.Listing, results []domain.InspectionResult) ([]domain.CartEntry, error) {
	entries, errs := e.Evaluate(task, listings, results)

	var insertErr error
	if len(entries) > 0 {
		if err := e.cart.AddToCart(ctx, entries); err != nil {
			insertErr = fmt.Errorf("add %d entries to cart: %w", len(entries), err)
		} else {
			e.metrics.CartEntriesAdded(len(entries))
			e.logger.Info("items added to cart", "task", task.ID, "count", len(entries))
		}
	} else {
		e.logger.Info("nothing is found", "task", task.ID)
	}

	if len(errs) > 0 {
		e.metrics.InspectionFailures(len(errs))
		bestEffort(ctx, e.logger, "notify inspection errors", func(ctx context.Context) error {
			return e.notifier.Notify(ctx, e.messages.InspectionErrors(errs))
		})
	}

	return entries, insertErr
}
