package model

import (
	"strings"
	"time"
)

// EventFullView is the detailed projection of an event.
type EventFullView struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Annotation        string          `json:"annotation"`
	Description       string          `json:"description"`
	Category          CategorySummary `json:"category"`
	Initiator         UserSummary     `json:"initiator"`
	Location          Location        `json:"location"`
	Paid              bool            `json:"paid"`
	ParticipantLimit  int             `json:"participantLimit"`
	RequestModeration bool            `json:"requestModeration"`
	EventDate         string          `json:"eventDate"`
	CreatedOn         string          `json:"createdOn"`
	PublishedOn       string          `json:"publishedOn,omitempty"`
	State             EventState      `json:"state"`
	ConfirmedRequests int             `json:"confirmedRequests"`
	Views             int64           `json:"views"`
}

// EventShortView is the list projection of an event.
type EventShortView struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Annotation        string          `json:"annotation"`
	Category          CategorySummary `json:"category"`
	Initiator         UserSummary     `json:"initiator"`
	Paid              bool            `json:"paid"`
	EventDate         string          `json:"eventDate"`
	ConfirmedRequests int             `json:"confirmedRequests"`
	Views             int64           `json:"views"`
}

// RequestView is the API projection of a participation request.
type RequestView struct {
	ID        string        `json:"id"`
	Created   string        `json:"created"`
	Event     string        `json:"event"`
	Requester string        `json:"requester"`
	Status    RequestStatus `json:"status"`
}

// ToFullView projects e with its resolved references and view count.
func ToFullView(e *Event, cat CategorySummary, initiator UserSummary, views int64) EventFullView {
	v := EventFullView{
		ID:                e.ID,
		Title:             e.Title,
		Annotation:        e.Annotation,
		Description:       e.Description,
		Category:          cat,
		Initiator:         initiator,
		Location:          e.Location,
		Paid:              e.Paid,
		ParticipantLimit:  e.ParticipantLimit,
		RequestModeration: e.RequestModeration,
		EventDate:         formatTime(e.EventDate),
		CreatedOn:         formatTime(e.CreatedOn),
		State:             e.State,
		ConfirmedRequests: e.ConfirmedRequests,
		Views:             views,
	}
	if e.PublishedOn != nil {
		v.PublishedOn = formatTime(*e.PublishedOn)
	}
	return v
}

// ToShortView projects e for listings.
func ToShortView(e *Event, cat CategorySummary, initiator UserSummary, views int64) EventShortView {
	return EventShortView{
		ID:                e.ID,
		Title:             e.Title,
		Annotation:        e.Annotation,
		Category:          cat,
		Initiator:         initiator,
		Paid:              e.Paid,
		EventDate:         formatTime(e.EventDate),
		ConfirmedRequests: e.ConfirmedRequests,
		Views:             views,
	}
}

// ToRequestView projects a participation request.
func ToRequestView(r *ParticipationRequest) RequestView {
	return RequestView{
		ID:        r.ID,
		Created:   formatTime(r.Created),
		Event:     r.EventID,
		Requester: r.RequesterID,
		Status:    r.Status,
	}
}

// ToRequestViews projects a slice, never returning nil.
func ToRequestViews(rs []ParticipationRequest) []RequestView {
	out := make([]RequestView, 0, len(rs))
	for i := range rs {
		out = append(out, ToRequestView(&rs[i]))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateTimeLayout)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
