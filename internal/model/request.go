package model

import "time"

// RequestStatus is the lifecycle status of a participation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

// ParticipationRequest is a user's request to take part in an event.
// Event and requester are referenced by id only.
type ParticipationRequest struct {
	ID          string
	RequesterID string
	EventID     string
	Created     time.Time
	Status      RequestStatus
}

// Terminal reports whether the request has been decided by the organizer.
func (r *ParticipationRequest) Terminal() bool {
	return r.Status == RequestConfirmed || r.Status == RequestRejected
}

// ParseModerationStatus accepts only the two statuses an organizer may set.
func ParseModerationStatus(s string) (RequestStatus, error) {
	switch st := RequestStatus(s); st {
	case RequestConfirmed, RequestRejected:
		return st, nil
	}
	return "", Validation("status must be CONFIRMED or REJECTED, got %q", s)
}

// StatusUpdate is an organizer decision over a batch of requests.
type StatusUpdate struct {
	RequestIDs []string
	Status     RequestStatus
}

// StatusUpdateResult partitions the requests decided by one moderation call.
type StatusUpdateResult struct {
	ConfirmedRequests []RequestView `json:"confirmedRequests"`
	RejectedRequests  []RequestView `json:"rejectedRequests"`
}

// Page is an offset window over a result set.
type Page struct {
	From int
	Size int
}

// DefaultPage mirrors the API defaults.
var DefaultPage = Page{From: 0, Size: 10}

// MaxPageSize bounds a single page.
const MaxPageSize = 1000

// Validate fails with a PaginationError for out-of-range windows.
func (p Page) Validate() error {
	if p.From < 0 || p.Size < 1 || p.Size > MaxPageSize {
		return Pagination("paging parameters must satisfy from >= 0 and 0 < size <= %d, got from=%d size=%d", MaxPageSize, p.From, p.Size)
	}
	return nil
}

// EventSort selects the ordering of the public event search.
type EventSort string

const (
	SortEventDate EventSort = "EVENT_DATE"
	SortViews     EventSort = "VIEWS"
)

// ParseEventSort accepts an empty value as "no explicit order".
func ParseEventSort(s string) (EventSort, error) {
	switch st := EventSort(s); st {
	case "", SortEventDate, SortViews:
		return st, nil
	}
	return "", Validation("unknown sort %q", s)
}

// EventFilter composes optional predicates with logical AND.
// Empty slices and nil pointers mean "no restriction".
type EventFilter struct {
	Initiators    []string
	States        []EventState
	Categories    []string
	RangeStart    *time.Time
	RangeEnd      *time.Time
	Text          string
	Paid          *bool
	OnlyAvailable bool
	Sort          EventSort
}

// Matches evaluates the filter against a single event.
func (f EventFilter) Matches(e *Event) bool {
	if len(f.Initiators) > 0 && !contains(f.Initiators, e.InitiatorID) {
		return false
	}
	if len(f.States) > 0 && !contains(f.States, e.State) {
		return false
	}
	if len(f.Categories) > 0 && !contains(f.Categories, e.CategoryID) {
		return false
	}
	if f.RangeStart != nil && e.EventDate.Before(*f.RangeStart) {
		return false
	}
	if f.RangeEnd != nil && e.EventDate.After(*f.RangeEnd) {
		return false
	}
	if f.Text != "" && !containsFold(e.Annotation, f.Text) && !containsFold(e.Description, f.Text) {
		return false
	}
	if f.Paid != nil && e.Paid != *f.Paid {
		return false
	}
	if f.OnlyAvailable && !e.Available() {
		return false
	}
	return true
}

func contains[T comparable](xs []T, v T) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
