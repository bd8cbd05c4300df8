package usecase

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"MarketSniper/internal/config"
	"MarketSniper/internal/domain"
	"MarketSniper/internal/ports"
)

// ErrNoRatePair is returned when the two currency pages share no listing.
var ErrNoRatePair = errors.New("no listing priced in both currencies")

// RateSampler derives the exchange rate from one listing priced in two currencies.
type RateSampler struct {
	pages    ports.PageFetcher
	notifier ports.Notifier
	metrics  ports.Metrics
	messages *Messages
	logger   *slog.Logger
	cfg      config.ExchangeRateConfig
	sleep    SleepFunc
	jitter   JitterFunc
}

// NewRateSampler wires the sampler. Nil notifier and metrics are no-ops.
func NewRateSampler(pages ports.PageFetcher, notifier ports.Notifier, metrics ports.Metrics, messages *Messages, cfg config.ExchangeRateConfig, log *slog.Logger) *RateSampler {
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
	return &RateSampler{
		pages:    pages,
		notifier: notifier,
		metrics:  metrics,
		messages: messages,
		logger:   log,
		cfg:      cfg,
		sleep:    sleepContext,
		jitter:   randomJitter,
	}
}

// Sample fetches the reference listing in the base and quote currencies and reports
// quote/base for the first listing present in both, by ascending listing id.
func (r *RateSampler) Sample(ctx context.Context) (decimal.Decimal, error) {
	base, err := r.fetch(ctx, r.cfg.BaseCurrency)
	if err != nil {
		return decimal.Zero, err
	}

	if err := r.sleep(ctx, r.jitter(time.Second, 1500*time.Millisecond)); err != nil {
		return decimal.Zero, err
	}

	quote, err := r.fetch(ctx, r.cfg.QuoteCurrency)
	if err != nil {
		return decimal.Zero, err
	}

	rate, ok := pairRate(base, quote)
	if !ok {
		return decimal.Zero, ErrNoRatePair
	}

	value, _ := rate.Float64()
	r.metrics.ExchangeRate(value)
	r.logger.Info("exchange rate sampled", "rate", rate.StringFixed(4))
	bestEffort(ctx, r.logger, "notify exchange rate", func(ctx context.Context) error {
		return r.notifier.Notify(ctx, r.messages.ExchangeRate(rate))
	})
	return rate, nil
}

func (r *RateSampler) fetch(ctx context.Context, currency int) (map[string]domain.Listing, error) {
	listings, err := r.pages.FetchPage(ctx, r.cfg.ListingURL, domain.PageQuery{
		Start:    0,
		Count:    r.cfg.Count,
		Currency: currency,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch reference listing in currency %d: %w", currency, err)
	}
	return listings, nil
}

// pairRate walks base listings by id and prices the first one also found in quote.
func pairRate(base, quote map[string]domain.Listing) (decimal.Decimal, bool) {
	ids := make([]string, 0, len(base))
	for id := range base {
		ids = append(ids, id)
	}
	// Listing ids are decimal strings; shorter means smaller.
	slices.SortFunc(ids, func(a, b string) int {
		if len(a) != len(b) {
			return cmp.Compare(len(a), len(b))
		}
		return strings.Compare(a, b)
	})

	for _, id := range ids {
		other, ok := quote[id]
		if !ok {
			continue
		}
		baseTotal := base[id].Total()
		if baseTotal <= 0 {
			continue
		}
		return decimal.NewFromInt(other.Total()).Div(decimal.NewFromInt(baseTotal)), true
	}
	return decimal.Zero, false
}
