package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketSniper/internal/config"
	"MarketSniper/internal/logging"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("MARKETSNIPER_CONFIG", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("METRICS_ADDR", "")

	cfg := config.Load("")
	cfg.Database.Driver = "sqlite3"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "market.db")
	cfg.Scheduler.IdleDelay = 10 * time.Millisecond
	cfg.Notifications.Telegram.BotToken = ""
	return cfg
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestSampleRateAgainstMarket(t *testing.T) {
	market := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		price, fee := "1000", "150"
		if r.URL.Query().Get("currency") == "5" {
			price, fee = "90000", "13500"
		}
		_, _ = w.Write([]byte(`{"listinginfo":{"42":{"listingid":"42","converted_price":` + price + `,"converted_fee":` + fee + `,"asset":{"id":"7"}}}}`))
	}))
	defer market.Close()

	cfg := testConfig(t)
	cfg.ExchangeRate.ListingURL = market.URL + "/market/listings/730/reference"

	a, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	rate, err := a.SampleRate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "90.00", rate.StringFixed(2))
}

func TestMigrateCreatesSchema(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, Migrate(context.Background(), cfg))
	require.NoError(t, Migrate(context.Background(), cfg), "migrations are idempotent")
}
