// Package repository implements persistence for events and participation requests.
// The Postgres implementation uses pgx directly (no ORM); the in-memory one backs
// tests and local runs without a database.
package repository

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a request for the same (requester, event) pair exists.
var ErrDuplicate = errors.New("participation request already exists")

// EventStore persists events. It carries no business rules.
type EventStore interface {
	Get(ctx context.Context, id string) (*model.Event, error)
	GetByInitiator(ctx context.Context, id, initiatorID string) (*model.Event, error)
	// Save inserts or updates by id.
	Save(ctx context.Context, e *model.Event) error
	Delete(ctx context.Context, id string) error
	// AddConfirmed atomically adds delta to the confirmed counter and returns
	// the new value.
	AddConfirmed(ctx context.Context, id string, delta int) (int, error)
	Search(ctx context.Context, f model.EventFilter, p model.Page) ([]model.Event, error)
}

// RequestStore persists participation requests.
type RequestStore interface {
	Get(ctx context.Context, id string) (*model.ParticipationRequest, error)
	FindByRequesterAndEvent(ctx context.Context, requesterID, eventID string) (*model.ParticipationRequest, error)
	// Save inserts or updates by id. Returns ErrDuplicate when the
	// (requester, event) pair is already taken by another request.
	Save(ctx context.Context, r *model.ParticipationRequest) error
	Delete(ctx context.Context, id string) error
	ListByEvent(ctx context.Context, eventID string) ([]model.ParticipationRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]model.ParticipationRequest, error)
}

// Store groups both stores and the per-event serialized update path.
type Store interface {
	Events() EventStore
	Requests() RequestStore

	// WithEventLock runs fn while holding the update lock of one event.
	// fn receives a Store bound to the same unit of work and a fresh snapshot
	// of the locked event. A non-nil error from fn discards the unit of work
	// where the backend supports it. fn must not call WithEventLock again.
	WithEventLock(ctx context.Context, eventID string, fn func(tx Store, ev *model.Event) error) error
}
