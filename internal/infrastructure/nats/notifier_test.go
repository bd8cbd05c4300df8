package nats

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

type recordingPublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

func TestNotifyPublishesAlert(t *testing.T) {
	t.Parallel()

	pub := &recordingPublisher{}
	n := NewNotifier(pub, "marketsniper.alerts")
	n.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	if err := n.Notify(context.Background(), "New purchase"); err != nil {
		t.Fatalf("Notify returned error: %v", err)
	}
	if pub.subject != "marketsniper.alerts" {
		t.Fatalf("unexpected subject: %s", pub.subject)
	}

	var alert Alert
	if err := json.Unmarshal(pub.data, &alert); err != nil {
		t.Fatalf("decode alert: %v", err)
	}
	if alert.Source != "marketsniper" || alert.Message != "New purchase" || !alert.SentAt.Equal(n.now()) {
		t.Fatalf("unexpected alert: %+v", alert)
	}
}

func TestNotifyWrapsPublishError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection closed")
	n := NewNotifier(&recordingPublisher{err: boom}, "s")
	if err := n.Notify(context.Background(), "x"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped publish error, got %v", err)
	}
}

func TestConnectPublishesToServer(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("requires NATS_URL")
	}

	sub, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connect subscriber: %v", err)
	}
	defer sub.Close()

	subject := "marketsniper.test." + t.Name()
	msgs := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe(subject, msgs)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer func() { _ = s.Unsubscribe() }()
	if err := sub.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	n, err := Connect(url, subject)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer n.Close()

	if err := n.Notify(context.Background(), "hello"); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	select {
	case msg := <-msgs:
		var alert Alert
		if err := json.Unmarshal(msg.Data, &alert); err != nil || alert.Message != "hello" {
			t.Fatalf("unexpected message %s: %v", msg.Data, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}
