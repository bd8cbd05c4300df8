package usecase

import (
	"context"
	"errors"
	"log/slog"

	"MarketSniper/internal/domain"
	"MarketSniper/internal/ports"
)

// PipelineDeps wires the driven adapters used by one task pass.
type PipelineDeps struct {
	Requests   ports.RequestLog
	Fetcher    ports.ListingFetcher
	Inspector  ports.Inspector
	Acceptance *AcceptanceEngine
	Notifier   ports.Notifier
	Metrics    ports.Metrics
	Messages   *Messages
	Logger     *slog.Logger
}

// Pipeline runs fetch, inspect and accept for a single task.
type Pipeline struct {
	requests   ports.RequestLog
	fetcher    ports.ListingFetcher
	inspector  ports.Inspector
	acceptance *AcceptanceEngine
	notifier   ports.Notifier
	metrics    ports.Metrics
	messages   *Messages
	logger     *slog.Logger
}

// NewPipeline constructs the per-task workflow.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		requests:   deps.Requests,
		fetcher:    deps.Fetcher,
		inspector:  deps.Inspector,
		acceptance: deps.Acceptance,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		messages:   deps.Messages,
		logger:     deps.Logger,
	}
	if p.notifier == nil {
		p.notifier = noopNotifier{}
	}
	if p.metrics == nil {
		p.metrics = noopMetrics{}
	}
	if p.messages == nil {
		p.messages = NewMessages("en")
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// ProcessTask fetches the task's pages and sends inspectable listings through acceptance.
// It returns domain.ErrRateLimited (wrapped) when the marketplace asked to slow down;
// every other failure is logged and swallowed.
func (p *Pipeline) ProcessTask(ctx context.Context, log *slog.Logger, task domain.Task) error {
	if log == nil {
		log = p.logger
	}
	log.Info("fetching market data", "pages", task.Pages)

	if p.requests != nil {
		bestEffort(ctx, log, "log market requests", func(ctx context.Context) error {
			return p.requests.LogRequests(ctx, task.ID, task.Pages)
		})
	}
	p.metrics.PagesRequested(task.Pages)

	listings, err := p.fetcher.FetchPages(ctx, task)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			p.metrics.RateLimited()
			bestEffort(ctx, log, "notify rate limit", func(ctx context.Context) error {
				return p.notifier.Notify(ctx, RateLimitedMessage)
			})
			return err
		}
		log.Error("fetch listings failed", "error", err)
		return nil
	}

	if len(listings) == 0 {
		log.Info("no data received from the market")
		return nil
	}

	targets := domain.InspectTargets(listings)
	if len(targets) == 0 {
		log.Info("no inspectable listings", "listings", len(listings))
		return nil
	}

	results, err := p.inspector.Inspect(ctx, targets)
	if err != nil {
		log.Error("inspection failed", "targets", len(targets), "error", err)
		return nil
	}

	entries, err := p.acceptance.Accept(ctx, task, listings, results)
	if err != nil {
		log.Error("store accepted listings failed", "error", err)
		return nil
	}

	log.Info("task processed",
		"listings", len(listings),
		"inspected", len(results),
		"accepted", len(entries))
	return nil
}
