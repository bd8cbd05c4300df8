package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"MarketSniper/internal/domain"
	"MarketSniper/internal/ports"
)

const bulkPath = "/bulk"

// Client talks to the external float inspection service.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ ports.Inspector = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     &http.Client{Timeout: timeout},
	}
}

type bulkLink struct {
	Link string `json:"link"`
}

type bulkResult struct {
	ListingID  string  `json:"m"`
	AssetID    string  `json:"a"`
	FloatValue float64 `json:"floatvalue"`
	Error      string  `json:"error"`
	Status     any     `json:"status"`
}

// Inspect sends all targets in one batch. The service may answer with fewer results
// than requested; missing assets are simply absent.
func (c *Client) Inspect(ctx context.Context, targets []domain.InspectTarget) ([]domain.InspectionResult, error) {
	if len(targets) == 0 {
		return nil, nil
	}

	links := make([]bulkLink, 0, len(targets))
	for _, target := range targets {
		links = append(links, bulkLink{Link: target.Link})
	}

	var raw json.RawMessage
	if err := c.post(ctx, bulkPath, map[string]any{"links": links}, &raw); err != nil {
		return nil, err
	}

	items, err := decodeBulk(raw)
	if err != nil {
		return nil, err
	}

	results := make([]domain.InspectionResult, 0, len(items))
	for _, item := range items {
		results = append(results, domain.InspectionResult{
			ListingID: item.ListingID,
			AssetID:   item.AssetID,
			Float:     item.FloatValue,
			Error:     item.Error,
			Status:    statusString(item.Status),
		})
	}
	return results, nil
}

// decodeBulk accepts both an array of results and an object keyed by anything.
func decodeBulk(raw json.RawMessage) ([]bulkResult, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []bulkResult
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode bulk array: %w", err)
		}
		return items, nil
	}

	var keyed map[string]bulkResult
	if err := json.Unmarshal(trimmed, &keyed); err != nil {
		return nil, fmt.Errorf("decode bulk object: %w", err)
	}

	keys := make([]string, 0, len(keyed))
	for key := range keyed {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]bulkResult, 0, len(keys))
	for _, key := range keys {
		items = append(items, keyed[key])
	}
	return items, nil
}

func statusString(status any) string {
	switch v := status.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
