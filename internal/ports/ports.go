package ports

import (
	"context"
	"time"

	"MarketSniper/internal/domain"
)

// TaskRepository reads search tasks and maintains their purchase quota.
type TaskRepository interface {
	ActiveTasks(ctx context.Context) ([]domain.Task, error)
	Task(ctx context.Context, id int64) (domain.Task, error)
	DecrementAmount(ctx context.Context, id int64) error
}

// CartRepository keeps accepted listings until a purchase attempt finalizes them.
type CartRepository interface {
	AddToCart(ctx context.Context, entries []domain.CartEntry) error
	PendingCart(ctx context.Context) ([]domain.PendingEntry, error)
	MarkHandled(ctx context.Context, listingIDs []string) error
}

// PurchaseRepository appends confirmed purchases.
type PurchaseRepository interface {
	SavePurchase(ctx context.Context, record domain.PurchaseRecord) error
}

// RequestLog is the audit trail of marketplace page requests.
type RequestLog interface {
	LogRequests(ctx context.Context, taskID int64, pages int) error
}

// Storage is the full persistence gateway.
type Storage interface {
	TaskRepository
	CartRepository
	PurchaseRepository
	RequestLog
}

// ListingFetcher pulls listing pages for a task.
type ListingFetcher interface {
	FetchPages(ctx context.Context, task domain.Task) (map[string]domain.Listing, error)
}

// PageFetcher reads a single listing page in a chosen currency.
type PageFetcher interface {
	FetchPage(ctx context.Context, link string, page domain.PageQuery) (map[string]domain.Listing, error)
}

// Inspector validates asset floats with the external inspection service.
type Inspector interface {
	Inspect(ctx context.Context, targets []domain.InspectTarget) ([]domain.InspectionResult, error)
}

// Purchaser submits buy orders to the marketplace.
type Purchaser interface {
	Purchase(ctx context.Context, session domain.Session, order domain.Order) (domain.Receipt, error)
}

// SessionProvider hands out the authenticated session and drops it when it goes stale.
type SessionProvider interface {
	Session(ctx context.Context) (domain.Session, error)
	Invalidate()
}

// Notifier delivers short operator alerts (Telegram, NATS, ...).
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Trigger runs a job on its own schedule until stopped.
type Trigger interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Metrics receives engine counters. Implementations must be safe for concurrent use.
type Metrics interface {
	PagesRequested(n int)
	RateLimited()
	InspectionFailures(n int)
	CartEntriesAdded(n int)
	PurchaseAttempt(outcome string)
	ExchangeRate(rate float64)
}
