package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"MarketSniper/internal/config"
	"MarketSniper/internal/infrastructure/inspect"
	"MarketSniper/internal/infrastructure/metrics"
	natsnotify "MarketSniper/internal/infrastructure/nats"
	"MarketSniper/internal/infrastructure/notify"
	"MarketSniper/internal/infrastructure/scheduler"
	"MarketSniper/internal/infrastructure/session"
	"MarketSniper/internal/infrastructure/steam"
	"MarketSniper/internal/infrastructure/storage"
	"MarketSniper/internal/infrastructure/telegram"
	"MarketSniper/internal/logging"
	"MarketSniper/internal/ports"
	"MarketSniper/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db       *sql.DB
	alerts   *alerts
	cache    *inspect.CachedInspector
	metrics  *metrics.Collector
	exporter *metrics.Server

	scheduler       *usecase.TaskScheduler
	purchases       *usecase.PurchaseEngine
	purchaseTrigger ports.Trigger
	rates           *usecase.RateSampler
	rateTrigger     ports.Trigger
}

// New opens storage, applies migrations when enabled and builds every engine.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	if cfg.Database.Migrate {
		if err := storage.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate storage: %w", err)
		}
	}
	store := storage.NewSQLRepository(db, cfg.Database.Driver)

	a := &Application{
		cfg:     cfg,
		logger:  baseLogger,
		db:      db,
		metrics: metrics.NewCollector(),
	}

	a.alerts, err = newAlerts(cfg.Notifications, baseLogger.With("component", "notifier"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var inspector ports.Inspector = inspect.NewClient(cfg.Inspector.Endpoint, cfg.Inspector.Timeout)
	if cfg.Inspector.CacheTTL > 0 {
		a.cache, err = inspect.NewCachedInspector(inspector, cfg.Inspector.CacheMaxCost, cfg.Inspector.CacheTTL)
		if err != nil {
			a.alerts.Close()
			_ = db.Close()
			return nil, fmt.Errorf("inspection cache: %w", err)
		}
		inspector = a.cache
	}

	messages := usecase.NewMessages(cfg.Notifications.Language)
	fetcher := steam.NewListingFetcher(nil, cfg.Market, baseLogger.With("component", "fetcher"))

	acceptance := usecase.NewAcceptanceEngine(store, a.alerts, a.metrics, messages, baseLogger.With("component", "acceptance"))
	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Requests:   store,
		Fetcher:    fetcher,
		Inspector:  inspector,
		Acceptance: acceptance,
		Notifier:   a.alerts,
		Metrics:    a.metrics,
		Messages:   messages,
		Logger:     baseLogger.With("component", "pipeline"),
	})
	a.scheduler = usecase.NewTaskScheduler(store, pipeline, cfg.Scheduler, baseLogger.With("component", "scheduler"))

	purchaser := steam.NewPurchaser(&http.Client{Timeout: cfg.Purchase.Timeout}, cfg.Market.BaseURL, cfg.Market.UserAgent)
	a.purchases = usecase.NewPurchaseEngine(usecase.PurchaseDeps{
		Cart:        store,
		Tasks:       store,
		Purchases:   store,
		Purchaser:   purchaser,
		Sessions:    session.NewFileProvider(cfg.Session),
		Notifier:    a.alerts,
		Metrics:     a.metrics,
		Messages:    messages,
		Logger:      baseLogger.With("component", "purchase"),
		Currency:    cfg.Market.Currency,
		BackoffStep: cfg.Purchase.BackoffStep,
	})
	a.purchaseTrigger = scheduler.NewInterval(cfg.Purchase.Interval, false)

	if cfg.ExchangeRate.Enabled {
		a.rates = usecase.NewRateSampler(fetcher, a.alerts, a.metrics, messages, cfg.ExchangeRate, baseLogger.With("component", "rate"))
		a.rateTrigger = scheduler.NewInterval(cfg.ExchangeRate.Interval, false)
	}

	if cfg.Metrics.Addr != "" {
		a.exporter = metrics.NewServer(cfg.Metrics.Addr, a.metrics, baseLogger.With("component", "metrics"))
	}

	return a, nil
}

// Run starts the purchase and rate triggers and drives the task scheduler until ctx is
// cancelled, then stops everything.
func (a *Application) Run(ctx context.Context) error {
	if a.exporter != nil {
		a.exporter.Start()
	}

	if err := a.purchaseTrigger.Start(ctx, func(time.Time) {
		if _, err := a.purchases.AttemptPurchases(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("purchase batch failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("start purchase trigger: %w", err)
	}

	if a.rateTrigger != nil {
		if err := a.rateTrigger.Start(ctx, func(time.Time) {
			if _, err := a.rates.Sample(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error("exchange rate sample failed", "error", err)
			}
		}); err != nil {
			return fmt.Errorf("start rate trigger: %w", err)
		}
	}

	a.logger.Info("market sniper started",
		"purchase_interval", a.cfg.Purchase.Interval,
		"rate_interval", a.cfg.ExchangeRate.Interval)

	runErr := a.scheduler.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, a.shutdown(shutdownCtx))
}

// SampleRate runs one exchange-rate sample.
func (a *Application) SampleRate(ctx context.Context) (decimal.Decimal, error) {
	if a.rates == nil {
		return decimal.Zero, errors.New("exchange rate sampling is disabled")
	}
	return a.rates.Sample(ctx)
}

func (a *Application) shutdown(ctx context.Context) error {
	var errs []error
	if err := a.purchaseTrigger.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop purchase trigger: %w", err))
	}
	if a.rateTrigger != nil {
		if err := a.rateTrigger.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop rate trigger: %w", err))
		}
	}
	if a.exporter != nil {
		if err := a.exporter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop metrics: %w", err))
		}
	}
	a.logger.Info("market sniper stopped")
	return errors.Join(errs...)
}

// Close drains queued notifications and releases storage.
func (a *Application) Close() error {
	a.alerts.Close()
	if a.cache != nil {
		a.cache.Close()
	}
	return a.db.Close()
}

// Migrate applies the schema without building the engines.
func Migrate(ctx context.Context, cfg config.Config) error {
	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	return storage.Migrate(ctx, db, cfg.Database.Driver)
}

// alerts is the async fan-out over every configured channel.
type alerts struct {
	*notify.Async
	nats *natsnotify.Notifier
}

func newAlerts(cfg config.NotificationConfig, log *slog.Logger) (*alerts, error) {
	var channels notify.Fanout

	tg := telegram.NewNotifier(cfg.Telegram.APIBase, cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if tg.Configured() {
		channels = append(channels, tg)
	} else {
		log.Warn("telegram is not configured, alerts go to the log only")
	}

	a := &alerts{}
	if cfg.NATS.URL != "" {
		n, err := natsnotify.Connect(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, err
		}
		a.nats = n
		channels = append(channels, n)
	}

	channels = append(channels, logChannel{log: log})
	a.Async = notify.NewAsync(channels, cfg.QueueSize, 10*time.Second, log)
	return a, nil
}

// Close drains the queue before dropping the NATS connection.
func (a *alerts) Close() {
	a.Async.Close()
	if a.nats != nil {
		_ = a.nats.Close()
	}
}

// logChannel records every alert in the application log.
type logChannel struct {
	log *slog.Logger
}

func (l logChannel) Notify(_ context.Context, message string) error {
	l.log.Info("alert", "message", message)
	return nil
}
