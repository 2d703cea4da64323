package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConfirmation completes when done is closed.
type fakeConfirmation struct {
	done chan struct{}
	ack  bool
}

func settled(ack bool) *fakeConfirmation {
	c := &fakeConfirmation{done: make(chan struct{}), ack: ack}
	close(c.done)
	return c
}

func (c *fakeConfirmation) WaitContext(ctx context.Context) (bool, error) {
	select {
	case <-c.done:
		return c.ack, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
	closed   bool

	// confirms are handed out one per publishing; nil once exhausted.
	confirms []*fakeConfirmation
	// onPublish runs after a publishing is accepted.
	onPublish func(amqp.Publishing)
}

func (f *fakeChannel) PublishWithDeferredConfirmWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) (confirmation, error) {
	f.exchange, f.key, f.msg = exchange, key, msg
	if f.err != nil {
		return nil, f.err
	}
	if f.onPublish != nil {
		f.onPublish(msg)
	}
	if len(f.confirms) == 0 {
		return &fakeConfirmation{done: make(chan struct{})}, nil
	}
	c := f.confirms[0]
	f.confirms = f.confirms[1:]
	return c, nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_PublishWrapsPayload(t *testing.T) {
	ch := &fakeChannel{confirms: []*fakeConfirmation{settled(true)}}
	p := &Publisher{exchange: "ewm.events", ch: ch}

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	require.NoError(t, p.Publish(ctx, RequestConfirmed, map[string]string{"requestId": "r1"}))

	assert.Equal(t, "ewm.events", ch.exchange)
	assert.Equal(t, RequestConfirmed, ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, "req-1", ch.msg.Headers["X-Request-ID"])

	var env Envelope
	require.NoError(t, json.Unmarshal(ch.msg.Body, &env))
	assert.Equal(t, ch.msg.MessageId, env.ID)
	assert.Equal(t, RequestConfirmed, env.Type)
	assert.JSONEq(t, `{"requestId":"r1"}`, string(env.Payload))
}

func TestPublisher_Nack(t *testing.T) {
	p := &Publisher{exchange: "x", ch: &fakeChannel{confirms: []*fakeConfirmation{settled(false)}}}

	err := p.Publish(context.Background(), EventPublished, struct{}{})
	assert.ErrorContains(t, err, "nack")
}

func TestPublisher_NoConfirmWithinWindowIsSuccess(t *testing.T) {
	p := &Publisher{exchange: "x", ch: &fakeChannel{}}

	start := time.Now()
	require.NoError(t, p.Publish(context.Background(), EventRejected, struct{}{}))
	assert.GreaterOrEqual(t, time.Since(start), publishWait)
}

func TestPublisher_LateAckDoesNotMaskNextNack(t *testing.T) {
	late := &fakeConfirmation{done: make(chan struct{}), ack: true}
	ch := &fakeChannel{confirms: []*fakeConfirmation{late, settled(false)}}
	p := &Publisher{exchange: "x", ch: ch}

	require.NoError(t, p.Publish(context.Background(), RequestCreated, struct{}{}))

	time.AfterFunc(2*publishWait, func() { close(late.done) })
	time.Sleep(3 * publishWait)

	err := p.Publish(context.Background(), RequestConfirmed, struct{}{})
	assert.ErrorContains(t, err, "nack")
}

func TestPublisher_UnroutableIsReported(t *testing.T) {
	returns := make(chan amqp.Return, returnBuffer)
	ch := &fakeChannel{confirms: []*fakeConfirmation{settled(true), settled(true)}}
	ch.onPublish = func(msg amqp.Publishing) {
		returns <- amqp.Return{MessageId: msg.MessageId, ReplyText: "NO_ROUTE"}
	}
	p := &Publisher{exchange: "x", ch: ch, returnCh: returns}

	assert.ErrorContains(t, p.Publish(context.Background(), EventPublished, struct{}{}), "NO_ROUTE")

	ch.onPublish = nil
	returns <- amqp.Return{MessageId: "stale", ReplyText: "NO_ROUTE"}
	assert.NoError(t, p.Publish(context.Background(), EventPublished, struct{}{}))
	assert.Empty(t, returns)
}

func TestPublisher_ContextCanceled(t *testing.T) {
	p := &Publisher{exchange: "x", ch: &fakeChannel{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Publish(ctx, EventPublished, struct{}{}), context.Canceled)
}

func TestPublisher_ChannelError(t *testing.T) {
	p := &Publisher{exchange: "x", ch: &fakeChannel{err: errors.New("channel closed")}}
	assert.ErrorContains(t, p.Publish(context.Background(), RequestCreated, struct{}{}), "channel closed")
}

func TestPublisher_Closed(t *testing.T) {
	ch := &fakeChannel{}
	p := &Publisher{exchange: "x", ch: ch}
	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
	assert.Error(t, p.Publish(context.Background(), RequestCanceled, struct{}{}))
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.Publish(context.Background(), RequestCreated, nil))
	assert.NoError(t, p.Close())
}
