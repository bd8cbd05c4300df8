// Package nats publishes operator alerts to a NATS subject.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"MarketSniper/internal/ports"
)

// Publisher is the part of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Alert is the JSON document published for every message.
type Alert struct {
	Source  string    `json:"source"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// Notifier implements ports.Notifier over core NATS publish.
type Notifier struct {
	pub     Publisher
	subject string
	now     func() time.Time
	close   func()
}

var _ ports.Notifier = (*Notifier)(nil)

// Connect dials the server and returns a notifier publishing on subject.
func Connect(url, subject string) (*Notifier, error) {
	nc, err := nats.Connect(url, nats.Name("marketsniper"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	slog.Info("nats connected", "url", url, "subject", subject)

	n := NewNotifier(nc, subject)
	n.close = nc.Close
	return n, nil
}

// NewNotifier wraps an existing publisher.
func NewNotifier(pub Publisher, subject string) *Notifier {
	return &Notifier{pub: pub, subject: subject, now: time.Now}
}

// Notify publishes the message as an Alert.
func (n *Notifier) Notify(_ context.Context, message string) error {
	data, err := json.Marshal(Alert{
		Source:  "marketsniper",
		Message: message,
		SentAt:  n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", n.subject, err)
	}
	return nil
}

// Close shuts down the connection opened by Connect.
func (n *Notifier) Close() error {
	if n.close != nil {
		n.close()
	}
	return nil
}
