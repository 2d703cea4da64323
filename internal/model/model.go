// Package model defines the core domain types for the event participation system.
package model

import (
	"fmt"
	"time"
)

// DateTimeLayout is the wire format for every timestamp exposed by the API.
const DateTimeLayout = "2006-01-02 15:04:05"

// Scheduling windows enforced by the event lifecycle.
const (
	MinLeadTime        = 2 * time.Hour
	MinPublishLeadTime = 1 * time.Hour
)

// EventState is the lifecycle state of an event.
type EventState string

const (
	StatePending   EventState = "PENDING"
	StatePublished EventState = "PUBLISHED"
	StateCanceled  EventState = "CANCELED"
)

// ParseEventState rejects anything outside the closed set of states.
func ParseEventState(s string) (EventState, error) {
	switch st := EventState(s); st {
	case StatePending, StatePublished, StateCanceled:
		return st, nil
	}
	return "", Validation("unknown event state %q", s)
}

// Location is a point on the map where the event takes place.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Event is a public event published by its initiator.
// ConfirmedRequests is owned by the event store and only changes through
// the per-event locked update path.
type Event struct {
	ID                string
	Title             string
	Annotation        string
	Description       string
	CategoryID        string
	InitiatorID       string
	Location          Location
	ParticipantLimit  int
	RequestModeration bool
	Paid              bool
	EventDate         time.Time
	CreatedOn         time.Time
	PublishedOn       *time.Time
	State             EventState
	ConfirmedRequests int
}

// Unlimited reports whether the event accepts any number of participants.
func (e *Event) Unlimited() bool {
	return e.ParticipantLimit == 0
}

// IsFull returns true when a limited event has no free seats left.
func (e *Event) IsFull() bool {
	return !e.Unlimited() && e.ConfirmedRequests >= e.ParticipantLimit
}

// AutoConfirm reports whether new requests skip organizer moderation.
func (e *Event) AutoConfirm() bool {
	return e.Unlimited() || !e.RequestModeration
}

// Available reports whether the event can still take a confirmed participant.
func (e *Event) Available() bool {
	return !e.IsFull()
}

// CheckLeadTime fails when date is closer to now than lead.
func CheckLeadTime(date, now time.Time, lead time.Duration) error {
	if date.Sub(now) < lead {
		return &Error{
			Kind:    ErrValidation,
			Message: fmt.Sprintf("event date must be at least %s after the current moment", lead),
			Meta:    map[string]string{"eventDate": date.Format(DateTimeLayout)},
		}
	}
	return nil
}

// ApplyUserAction moves the event as requested by its initiator.
func (e *Event) ApplyUserAction(a UserStateAction) error {
	if e.State == StatePublished {
		return Conflict("published event %s cannot be changed", e.ID)
	}
	switch a {
	case CancelReview:
		e.State = StateCanceled
	case SendToReview:
		e.State = StatePending
	default:
		return Validation("unknown state action %q", a)
	}
	return nil
}

// Publish makes the event visible and open for participation requests.
func (e *Event) Publish(now time.Time) error {
	switch e.State {
	case StatePublished:
		return Conflict("event %s is already published", e.ID)
	case StateCanceled:
		return Conflict("event %s is canceled and cannot be published", e.ID)
	}
	if err := CheckLeadTime(e.EventDate, now, MinPublishLeadTime); err != nil {
		return err
	}
	t := now
	e.State = StatePublished
	e.PublishedOn = &t
	return nil
}

// Reject cancels an event under review.
func (e *Event) Reject() error {
	if e.State == StatePublished {
		return Conflict("event %s is already published and cannot be rejected", e.ID)
	}
	e.State = StateCanceled
	return nil
}

// UserStateAction is the closed set of transitions available to an initiator.
type UserStateAction string

const (
	CancelReview UserStateAction = "CANCEL_REVIEW"
	SendToReview UserStateAction = "SEND_TO_REVIEW"
)

// ParseUserStateAction rejects unknown tags at the boundary.
func ParseUserStateAction(s string) (UserStateAction, error) {
	switch a := UserStateAction(s); a {
	case CancelReview, SendToReview:
		return a, nil
	}
	return "", Validation("unknown state action %q", s)
}

// AdminStateAction is the closed set of transitions available to an administrator.
type AdminStateAction string

const (
	PublishEvent AdminStateAction = "PUBLISH_EVENT"
	RejectEvent  AdminStateAction = "REJECT_EVENT"
)

// ParseAdminStateAction rejects unknown tags at the boundary.
func ParseAdminStateAction(s string) (AdminStateAction, error) {
	switch a := AdminStateAction(s); a {
	case PublishEvent, RejectEvent:
		return a, nil
	}
	return "", Validation("unknown state action %q", s)
}

// NewEvent is the payload for creating an event.
type NewEvent struct {
	Title             string
	Annotation        string
	Description       string
	CategoryID        string
	EventDate         time.Time
	Location          Location
	Paid              bool
	ParticipantLimit  int
	RequestModeration bool
}

// EventPatch holds the optional fields shared by owner and admin edits.
// Nil means "leave unchanged".
type EventPatch struct {
	Title             *string
	Annotation        *string
	Description       *string
	CategoryID        *string
	EventDate         *time.Time
	Location          *Location
	Paid              *bool
	ParticipantLimit  *int
	RequestModeration *bool
}

// UserEventPatch is an edit submitted by the event initiator.
type UserEventPatch struct {
	EventPatch
	StateAction *UserStateAction
}

// AdminEventPatch is an edit submitted by an administrator.
type AdminEventPatch struct {
	EventPatch
	StateAction *AdminStateAction
}

// Apply copies the non-nil fields onto e. Category and date checks are the
// caller's job since they need collaborators and a clock.
func (p EventPatch) Apply(e *Event) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Annotation != nil {
		e.Annotation = *p.Annotation
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.CategoryID != nil {
		e.CategoryID = *p.CategoryID
	}
	if p.EventDate != nil {
		e.EventDate = *p.EventDate
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Paid != nil {
		e.Paid = *p.Paid
	}
	if p.ParticipantLimit != nil {
		e.ParticipantLimit = *p.ParticipantLimit
	}
	if p.RequestModeration != nil {
		e.RequestModeration = *p.RequestModeration
	}
}

// UserSummary is what the user directory exposes about a user.
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CategorySummary is what the category directory exposes about a category.
type CategorySummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
