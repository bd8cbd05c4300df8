package steam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"MarketSniper/internal/config"
	"MarketSniper/internal/domain"
	"MarketSniper/internal/ports"
)

const (
	renderPath   = "/render/"
	maxPageBytes = 8 << 20
)

// ListingFetcher reads listing pages from the marketplace render endpoint.
type ListingFetcher struct {
	client    *http.Client
	country   string
	language  string
	currency  int
	pageSize  int
	userAgent string
	logger    *slog.Logger
}

var (
	_ ports.ListingFetcher = (*ListingFetcher)(nil)
	_ ports.PageFetcher    = (*ListingFetcher)(nil)
)

// NewListingFetcher wires an HTTP client; a nil client gets the configured timeout.
func NewListingFetcher(client *http.Client, cfg config.MarketConfig, log *slog.Logger) *ListingFetcher {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	return &ListingFetcher{
		client:    client,
		country:   cfg.Country,
		language:  cfg.Language,
		currency:  cfg.Currency,
		pageSize:  pageSize,
		userAgent: cfg.UserAgent,
		logger:    log,
	}
}

// FetchPages requests every page of the task concurrently and merges their listings.
// Any failed request fails the whole batch; pages without usable data contribute nothing.
func (f *ListingFetcher) FetchPages(ctx context.Context, task domain.Task) (map[string]domain.Listing, error) {
	merged := make(map[string]domain.Listing)
	if task.Pages <= 0 {
		return merged, nil
	}

	pages := make([]map[string]domain.Listing, task.Pages)
	g, gctx := errgroup.WithContext(ctx)
	for page := 0; page < task.Pages; page++ {
		g.Go(func() error {
			listings, err := f.FetchPage(gctx, task.Link, domain.PageQuery{
				Start:    page * f.pageSize,
				Count:    f.pageSize,
				Currency: f.currency,
			})
			if err != nil {
				return fmt.Errorf("task %d page %d: %w", task.ID, page, err)
			}
			pages[page] = listings
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, listings := range pages {
		maps.Copy(merged, listings)
	}
	return merged, nil
}

// FetchPage requests a single render page.
func (f *ListingFetcher) FetchPage(ctx context.Context, link string, page domain.PageQuery) (map[string]domain.Listing, error) {
	pageURL, err := f.buildPageURL(link, page)
	if err != nil {
		return nil, err
	}

	body, err := f.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	listings, reason := decodeListings(body)
	if reason != "" {
		f.debug("listing page dropped", "url", pageURL, "reason", reason)
	}
	return listings, nil
}

func (f *ListingFetcher) get(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request listings: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPageBytes))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read listings: %w", err)
	}
	return body, nil
}

func (f *ListingFetcher) buildPageURL(link string, page domain.PageQuery) (string, error) {
	parsed, err := url.Parse(strings.TrimRight(link, "/") + renderPath)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", link, err)
	}

	count := page.Count
	if count <= 0 {
		count = f.pageSize
	}

	query := parsed.Query()
	query.Set("start", strconv.Itoa(page.Start))
	query.Set("count", strconv.Itoa(count))
	query.Set("country", f.country)
	query.Set("language", f.language)
	query.Set("currency", strconv.Itoa(page.Currency))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (f *ListingFetcher) debug(msg string, args ...interface{}) {
	if f.logger != nil {
		f.logger.Debug(msg, args...)
	}
}

type renderResponse struct {
	ListingInfo json.RawMessage `json:"listinginfo"`
	ResultsHTML string          `json:"results_html"`
}

type listingInfo struct {
	ListingID      string `json:"listingid"`
	ConvertedPrice int64  `json:"converted_price"`
	ConvertedFee   int64  `json:"converted_fee"`
	Asset          struct {
		ID            string `json:"id"`
		MarketActions []struct {
			Link string `json:"link"`
			Name string `json:"name"`
		} `json:"market_actions"`
	} `json:"asset"`
}

// decodeListings turns a render payload into listings. A non-empty reason explains
// why the page contributed nothing.
func decodeListings(body []byte) (map[string]domain.Listing, string) {
	listings := make(map[string]domain.Listing)

	var payload renderResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return listings, fmt.Sprintf("malformed payload: %v", err)
	}

	raw := bytes.TrimSpace(payload.ListingInfo)
	if len(raw) == 0 || raw[0] != '{' {
		// An empty result set is rendered as [] rather than {}.
		if msg := tableMessage(payload.ResultsHTML); msg != "" {
			return listings, msg
		}
		if rows := countListingRows(payload.ResultsHTML); rows > 0 {
			return listings, fmt.Sprintf("listinginfo missing for %d rendered rows", rows)
		}
		return listings, "no listinginfo"
	}

	var info map[string]listingInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return listings, fmt.Sprintf("malformed listinginfo: %v", err)
	}

	for key, item := range info {
		id := item.ListingID
		if id == "" {
			id = key
		}
		listing := domain.Listing{
			ID:      id,
			Price:   item.ConvertedPrice,
			Fee:     item.ConvertedFee,
			AssetID: item.Asset.ID,
		}
		if len(item.Asset.MarketActions) > 0 {
			listing.InspectTemplate = item.Asset.MarketActions[0].Link
		}
		listings[id] = listing
	}
	return listings, ""
}
