// Package messaging publishes domain notifications to a RabbitMQ topic exchange.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Routing keys.
const (
	EventPublished   = "event.published"
	EventRejected    = "event.rejected"
	RequestCreated   = "request.created"
	RequestConfirmed = "request.confirmed"
	RequestRejected  = "request.rejected"
	RequestCanceled  = "request.canceled"
)

// wait window for Return / Confirm
const publishWait = 150 * time.Millisecond

// Envelope wraps every message body.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	RequestID  string          `json:"request_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

func newEnvelope(ctx context.Context, routingKey string, payload any, now time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode payload: %w", err)
	}
	return Envelope{
		ID:         uuid.NewString(),
		Type:       routingKey,
		OccurredAt: now.UTC(),
		RequestID:  middleware.GetReqID(ctx),
		Payload:    raw,
	}, nil
}

// confirmation is the broker's verdict on one publishing.
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

type channel interface {
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (confirmation, error)
	Close() error
}

// amqpChannel adapts *amqp.Channel to channel.
type amqpChannel struct{ *amqp.Channel }

func (c amqpChannel) PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.Channel.PublishWithDeferredConfirmWithContext(ctx, exchange, key, mandatory, immediate, msg)
	if err != nil || dc == nil {
		// nil confirmation: channel not in confirm mode
		return nil, err
	}
	return dc, nil
}

// Publisher sends envelopes with publisher confirms enabled. Each publishing
// waits on its own deferred confirmation, so a late ack never answers for a
// later message.
type Publisher struct {
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel

	// The broker sends basic.return before the ack of an unroutable message,
	// so a return is buffered here by the time its confirmation completes.
	returnCh <-chan amqp.Return
}

// NewPublisher dials url and declares a durable topic exchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	// enable publisher confirms
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	return &Publisher{
		exchange: exchange,
		conn:     conn,
		ch:       amqpChannel{ch},
		returnCh: ch.NotifyReturn(make(chan amqp.Return, returnBuffer)),
	}, nil
}

// At most one stale return (from a publishing whose confirm window expired)
// plus the current one are pending between two drains.
const returnBuffer = 16

// Publish encodes payload in an Envelope and sends it under routingKey.
// A confirmation that does not arrive within publishWait counts as sent.
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	env, err := newEnvelope(ctx, routingKey, payload, time.Now())
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	headers := amqp.Table{}
	if env.RequestID != "" {
		headers["X-Request-ID"] = env.RequestID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return errors.New("publisher channel not ready")
	}
	// drop returns left by publishings that stopped waiting
	p.returned(env.ID)

	conf, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, p.exchange, routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			MessageId:    env.ID,
			Type:         routingKey,
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    env.OccurredAt,
			Headers:      headers,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	if conf == nil {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, publishWait)
	defer cancel()

	ack, err := conf.WaitContext(waitCtx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	if ret, ok := p.returned(env.ID); ok {
		return fmt.Errorf("publish %s: no route (%s)", routingKey, ret.ReplyText)
	}
	if !ack {
		return fmt.Errorf("publish %s: nack", routingKey)
	}
	return nil
}

// returned drains pending returns and reports the one for messageID, if any.
// Returns of other messages belong to publishings that already gave up waiting.
func (p *Publisher) returned(messageID string) (amqp.Return, bool) {
	var (
		match amqp.Return
		found bool
	)
	for {
		select {
		case ret, ok := <-p.returnCh:
			if !ok {
				return match, found
			}
			if ret.MessageId == messageID {
				match, found = ret, true
			}
		default:
			return match, found
		}
	}
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
	return nil
}

// NoopPublisher drops every message. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, any) error { return nil }
func (NoopPublisher) Close() error                               { return nil }
