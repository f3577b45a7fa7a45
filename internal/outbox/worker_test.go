package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyisaiah47/deep-cut-sub000/internal/events"
)

type flakyPublisher struct {
	failures int
	calls    int
}

func (p *flakyPublisher) Publish(ctx context.Context, event Event) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("broker unavailable")
	}
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent(t *testing.T) Event {
	t.Helper()
	payload, err := json.Marshal(events.PhaseChangePayload{From: "LOBBY", To: "DISTRIBUTION"})
	require.NoError(t, err)
	return Event{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		EventType: string(events.TypePhaseChange),
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

func TestPublishWithRetrySucceedsAfterTransientFailures(t *testing.T) {
	pub := &flakyPublisher{failures: 2}
	w := NewWorker(nil, pub, Config{MaxRetries: 3, RetryDelay: time.Millisecond}, quietLogger())

	err := w.publishWithRetry(context.Background(), testEvent(t))
	require.NoError(t, err)
	assert.Equal(t, 3, pub.calls)
}

func TestPublishWithRetryExhaustsBudget(t *testing.T) {
	pub := &flakyPublisher{failures: 100}
	w := NewWorker(nil, pub, Config{MaxRetries: 2, RetryDelay: time.Millisecond}, quietLogger())

	err := w.publishWithRetry(context.Background(), testEvent(t))
	require.Error(t, err)
	assert.Equal(t, 3, pub.calls)
}

func TestPublishWithRetryStopsOnCanceledContext(t *testing.T) {
	pub := &flakyPublisher{failures: 100}
	w := NewWorker(nil, pub, Config{MaxRetries: 5, RetryDelay: time.Minute}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.publishWithRetry(ctx, testEvent(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, pub.calls)
}
