package steam

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"MarketSniper/internal/domain"
	"MarketSniper/internal/ports"
)

const (
	buyListingPath   = "/market/buylisting/"
	maxPurchaseBytes = 64 << 10
)

// Purchaser submits buy orders through the marketplace web endpoint.
type Purchaser struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

var _ ports.Purchaser = (*Purchaser)(nil)

// NewPurchaser wires an HTTP client against the marketplace base URL.
func NewPurchaser(client *http.Client, baseURL, userAgent string) *Purchaser {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Purchaser{
		client:    client,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
	}
}

type purchaseResponse struct {
	WalletInfo *struct {
		WalletBalance flexInt `json:"wallet_balance"`
	} `json:"wallet_info"`
	Message string `json:"message"`
}

// Purchase buys a single listing. Rejections come back as *PurchaseError.
func (p *Purchaser) Purchase(ctx context.Context, session domain.Session, order domain.Order) (domain.Receipt, error) {
	if !session.Valid() {
		return domain.Receipt{}, fmt.Errorf("purchase %s: %w", order.ListingID, domain.ErrSessionExpired)
	}

	quantity := order.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	form := url.Values{}
	form.Set("currency", strconv.Itoa(order.Currency))
	form.Set("fee", strconv.FormatInt(order.Fee, 10))
	form.Set("quantity", strconv.Itoa(quantity))
	form.Set("save_my_address", "0")
	form.Set("sessionid", session.ID)
	form.Set("subtotal", strconv.FormatInt(order.Subtotal, 10))
	form.Set("total", strconv.FormatInt(order.Total(), 10))

	endpoint := p.baseURL + buyListingPath + url.PathEscape(order.ListingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Cookie", session.CookieHeader())
	if order.Referer != "" {
		req.Header.Set("Referer", order.Referer)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPurchaseBytes))
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("read response: %w", err)
	}

	var payload purchaseResponse
	decodeErr := json.Unmarshal(raw, &payload)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return domain.Receipt{}, &PurchaseError{
			Status:  resp.StatusCode,
			Message: payload.Message,
			Kind:    Classify(resp.StatusCode, payload.Message),
		}
	}

	if decodeErr != nil {
		return domain.Receipt{}, fmt.Errorf("decode response: %w", decodeErr)
	}

	if payload.WalletInfo == nil {
		return domain.Receipt{}, nil
	}

	return domain.Receipt{
		Confirmed:     true,
		WalletBalance: int64(payload.WalletInfo.WalletBalance),
	}, nil
}

// flexInt accepts integers encoded either as JSON numbers or as quoted strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("parse integer %q: %w", data, err)
	}
	*f = flexInt(v)
	return nil
}
