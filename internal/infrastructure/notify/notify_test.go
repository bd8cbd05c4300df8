package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	msgs  []string
	err   error
	block chan struct{}
}

func (r *recorder) Notify(_ context.Context, message string) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, message)
	return r.err
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFanoutDeliversToAllAndJoinsErrors(t *testing.T) {
	first := &recorder{err: errors.New("telegram down")}
	second := &recorder{}

	err := Fanout{first, second}.Notify(context.Background(), "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram down")
	assert.Equal(t, []string{"hello"}, first.messages())
	assert.Equal(t, []string{"hello"}, second.messages())
	assert.NoError(t, Fanout{}.Notify(context.Background(), "x"))
}

func TestAsyncDeliversQueuedMessagesOnClose(t *testing.T) {
	inner := &recorder{}
	async := NewAsync(inner, 8, time.Second, quietLogger())

	for _, msg := range []string{"a", "b", "c"} {
		require.NoError(t, async.Notify(context.Background(), msg))
	}
	async.Close()

	assert.Equal(t, []string{"a", "b", "c"}, inner.messages())
	assert.Zero(t, async.Dropped())
}

func TestAsyncDropsWhenFull(t *testing.T) {
	inner := &recorder{block: make(chan struct{})}
	async := NewAsync(inner, 1, time.Second, quietLogger())

	// The worker takes the first message and blocks; the second fills the queue.
	require.NoError(t, async.Notify(context.Background(), "first"))
	require.Eventually(t, func() bool { return len(async.ch) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, async.Notify(context.Background(), "second"))
	require.NoError(t, async.Notify(context.Background(), "third"))

	assert.Equal(t, int64(1), async.Dropped())

	close(inner.block)
	async.Close()
	assert.Equal(t, []string{"first", "second"}, inner.messages())
}

func TestAsyncSwallowsDeliveryErrorsAndIgnoresLateMessages(t *testing.T) {
	inner := &recorder{err: errors.New("boom")}
	async := NewAsync(inner, 4, 0, quietLogger())

	require.NoError(t, async.Notify(context.Background(), "x"))
	async.Close()
	async.Close()

	require.NoError(t, async.Notify(context.Background(), "late"))
	assert.Equal(t, []string{"x"}, inner.messages())
	assert.Equal(t, int64(1), async.Dropped())
}
