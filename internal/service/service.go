// Package service implements the event lifecycle and admission control rules,
// orchestrating the repository layer and the external collaborators.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/repository"
	"github.com/rs/zerolog/log"
)

// UserDirectory resolves users by id. Unknown ids yield a model NotFound error.
type UserDirectory interface {
	LookupUser(ctx context.Context, id string) (model.UserSummary, error)
}

// CategoryDirectory resolves categories by id. Unknown ids yield a model NotFound error.
type CategoryDirectory interface {
	LookupCategory(ctx context.Context, id string) (model.CategorySummary, error)
}

// ViewCounter returns page view counts keyed by event id.
type ViewCounter interface {
	ViewCounts(ctx context.Context, eventIDs []string) (map[string]int64, error)
}

// HitRecorder records a page visit.
type HitRecorder interface {
	Hit(ctx context.Context, uri, ip string) error
}

// Publisher emits domain notifications after a successful commit.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Visit identifies the public page a caller is reading.
type Visit struct {
	URI string
	IP  string
}

type options struct {
	hits HitRecorder
	pub  Publisher
	now  func() time.Time
}

// Option configures optional collaborators of the services.
type Option func(*options)

func WithHitRecorder(h HitRecorder) Option { return func(o *options) { o.hits = h } }
func WithPublisher(p Publisher) Option     { return func(o *options) { o.pub = p } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// publish is best-effort: failures are logged and never surface.
func (o options) publish(ctx context.Context, routingKey string, payload any) {
	if o.pub == nil {
		return
	}
	if err := o.pub.Publish(ctx, routingKey, payload); err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Msg("publish notification failed")
	}
}

func (o options) recordHit(ctx context.Context, v Visit) {
	if o.hits == nil || v.URI == "" {
		return
	}
	if err := o.hits.Hit(ctx, v.URI, v.IP); err != nil {
		log.Warn().Err(err).Str("uri", v.URI).Msg("record hit failed")
	}
}

// eventNotFound translates a store miss into the business error.
func eventNotFound(err error, eventID string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return model.NotFound("event %s was not found", eventID)
	}
	return err
}
