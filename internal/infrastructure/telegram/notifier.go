package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"MarketSniper/internal/ports"
)

// DefaultAPIBase is the public Bot API host.
const DefaultAPIBase = "https://api.telegram.org"

// ErrMisconfigured is returned when the bot token or chat id is missing.
var ErrMisconfigured = errors.New("telegram notifier misconfigured")

// Notifier sends plain-text alerts to a Telegram chat via bot API.
type Notifier struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. An empty apiBase selects DefaultAPIBase.
func NewNotifier(apiBase, botToken, chatID string) *Notifier {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Notifier{
		apiBase:  strings.TrimRight(apiBase, "/"),
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Configured reports whether both token and chat id are set.
func (n *Notifier) Configured() bool {
	return n.botToken != "" && n.chatID != ""
}

// Notify posts a message through sendMessage.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	if !n.Configured() || n.client == nil {
		return ErrMisconfigured
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}
