package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"MarketSniper/internal/domain"
	"MarketSniper/internal/ports"
)

// Purchase attempt outcomes reported to metrics.
const (
	OutcomePurchased      = "purchased"
	OutcomeUnconfirmed    = "unconfirmed"
	OutcomeConflict       = "conflict"
	OutcomeRateLimited    = "rate_limited"
	OutcomeSessionExpired = "session_expired"
	OutcomeFailed         = "failed"
)

// PurchaseDeps wires the purchase engine.
type PurchaseDeps struct {
	Cart        ports.CartRepository
	Tasks       ports.TaskRepository
	Purchases   ports.PurchaseRepository
	Purchaser   ports.Purchaser
	Sessions    ports.SessionProvider
	Notifier    ports.Notifier
	Metrics     ports.Metrics
	Messages    *Messages
	Logger      *slog.Logger
	Currency    int
	BackoffStep time.Duration
	Sleep       SleepFunc
}

// PurchaseEngine drains the cart, cheapest float first.
type PurchaseEngine struct {
	cart      ports.CartRepository
	tasks     ports.TaskRepository
	purchases ports.PurchaseRepository
	purchaser ports.Purchaser
	sessions  ports.SessionProvider
	notifier  ports.Notifier
	metrics   ports.Metrics
	messages  *Messages
	logger    *slog.Logger
	currency  int
	step      time.Duration
	sleep     SleepFunc
}

// PurchaseSummary describes one batch.
type PurchaseSummary struct {
	Loaded    int
	Attempted int
	Purchased int
	Failed    int
	Handled   []string
}

// NewPurchaseEngine constructs the engine with defaults for optional collaborators.
func NewPurchaseEngine(deps PurchaseDeps) *PurchaseEngine {
	e := &PurchaseEngine{
		cart:      deps.Cart,
		tasks:     deps.Tasks,
		purchases: deps.Purchases,
		purchaser: deps.Purchaser,
		sessions:  deps.Sessions,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		messages:  deps.Messages,
		logger:    deps.Logger,
		currency:  deps.Currency,
		step:      deps.BackoffStep,
		sleep:     deps.Sleep,
	}
	if e.notifier == nil {
		e.notifier = noopNotifier{}
	}
	if e.metrics == nil {
		e.metrics = noopMetrics{}
	}
	if e.messages == nil {
		e.messages = NewMessages("en")
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.sleep == nil {
		e.sleep = sleepContext
	}
	return e
}

// AttemptPurchases buys pending cart entries in ascending float order and stops at the
// first entry whose task has no quota left. Afterwards every loaded listing that did not
// fail is marked handled, including the entries behind the stop point. When ctx is
// cancelled mid-batch only the attempted listings are finalized.
func (e *PurchaseEngine) AttemptPurchases(ctx context.Context) (PurchaseSummary, error) {
	var summary PurchaseSummary

	pending, err := e.cart.PendingCart(ctx)
	if err != nil {
		return summary, fmt.Errorf("load pending cart: %w", err)
	}
	summary.Loaded = len(pending)
	if len(pending) == 0 {
		return summary, nil
	}

	session, err := e.sessions.Session(ctx)
	if err != nil {
		return summary, fmt.Errorf("load session: %w", err)
	}

	log := e.logger.With("cycle", uuid.NewString())
	log.Info("processing cart", "items", len(pending))

	failed := make(map[string]struct{})
	finalize := pending
	for i, entry := range pending {
		if entry.Exhausted() {
			log.Info("task quota exhausted, stopping batch", "task", entry.TaskID, "listing", entry.ListingID)
			break
		}

		summary.Attempted++
		ok, purchased := e.attempt(ctx, log, session, entry)
		if purchased {
			summary.Purchased++
		}
		if !ok {
			summary.Failed++
			failed[entry.ListingID] = struct{}{}
		}

		if err := e.sleep(ctx, e.step*time.Duration(i+1)); err != nil {
			finalize = pending[:i+1]
			break
		}
	}

	for _, entry := range finalize {
		if _, ok := failed[entry.ListingID]; ok {
			continue
		}
		summary.Handled = append(summary.Handled, entry.ListingID)
	}
	if len(summary.Handled) == 0 {
		return summary, nil
	}

	// Purchases already happened, so the bookkeeping survives cancellation.
	if err := e.cart.MarkHandled(context.WithoutCancel(ctx), summary.Handled); err != nil {
		return summary, fmt.Errorf("mark handled: %w", err)
	}
	log.Info("cart processed",
		"attempted", summary.Attempted,
		"purchased", summary.Purchased,
		"failed", summary.Failed)
	return summary, nil
}

// attempt buys one entry. ok reports whether the entry can be finalized; purchased
// whether a purchase record was written.
func (e *PurchaseEngine) attempt(ctx context.Context, log *slog.Logger, session domain.Session, entry domain.PendingEntry) (ok, purchased bool) {
	log = log.With("listing", entry.ListingID, "task", entry.TaskID)

	task, err := e.tasks.Task(ctx, entry.TaskID)
	if err != nil {
		log.Error("load purchase task failed", "error", err)
		e.metrics.PurchaseAttempt(OutcomeFailed)
		return false, false
	}

	log.Info("sending purchase request", "total", entry.Total(), "float", entry.AssetFloat)
	receipt, err := e.purchaser.Purchase(ctx, session, domain.Order{
		ListingID: entry.ListingID,
		Currency:  e.currency,
		Subtotal:  entry.Subtotal,
		Fee:       entry.Fee,
		Quantity:  1,
		Referer:   task.Link,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPurchaseConflict):
			log.Info("listing is gone", "reason", err)
			e.metrics.PurchaseAttempt(OutcomeConflict)
			return true, false
		case errors.Is(err, domain.ErrSessionExpired):
			log.Warn("session rejected, invalidating", "error", err)
			e.sessions.Invalidate()
			e.metrics.PurchaseAttempt(OutcomeSessionExpired)
		case errors.Is(err, domain.ErrRateLimited):
			log.Warn("purchase rate limited", "error", err)
			e.metrics.PurchaseAttempt(OutcomeRateLimited)
		default:
			log.Error("purchase failed", "error", err)
			e.metrics.PurchaseAttempt(OutcomeFailed)
		}
		return false, false
	}

	if !receipt.Confirmed {
		log.Info("purchase not confirmed by wallet info")
		e.metrics.PurchaseAttempt(OutcomeUnconfirmed)
		return true, false
	}

	record := domain.PurchaseRecord{
		Link:       task.Link,
		FloatValue: entry.AssetFloat,
		Price:      domain.MajorUnits(entry.Total()),
		TaskID:     entry.TaskID,
	}
	if err := e.purchases.SavePurchase(ctx, record); err != nil {
		log.Error("save purchase failed", "error", err)
	}

	log.Info("purchase confirmed",
		"float", fmt.Sprintf("%s => %s", formatFloat(task.Float), formatFloat(entry.AssetFloat)),
		"price", record.Price.StringFixed(2),
		"wallet_balance", domain.MajorUnits(receipt.WalletBalance).StringFixed(2))

	bestEffort(ctx, log, "decrement task amount", func(ctx context.Context) error {
		return e.tasks.DecrementAmount(ctx, entry.TaskID)
	})
	bestEffort(ctx, log, "notify purchase", func(ctx context.Context) error {
		return e.notifier.Notify(ctx, e.messages.Purchase(task, entry.CartEntry, receipt))
	})
	e.metrics.PurchaseAttempt(OutcomePurchased)
	return true, true
}
