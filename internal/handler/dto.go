package handler

import (
	"strconv"
	"time"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
)

// dateTime is a timestamp in model.DateTimeLayout, interpreted as UTC.
type dateTime struct {
	time.Time
}

func (d *dateTime) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return model.Validation("date must be a string in format %q", model.DateTimeLayout)
	}
	t, err := time.ParseInLocation(model.DateTimeLayout, s, time.UTC)
	if err != nil {
		return model.Validation("date %q does not match format %q", s, model.DateTimeLayout)
	}
	d.Time = t
	return nil
}

type locationDTO struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

type newEventRequest struct {
	Title             string       `json:"title" validate:"required,min=3,max=120"`
	Annotation        string       `json:"annotation" validate:"required,min=20,max=2000"`
	Description       string       `json:"description" validate:"required,min=20,max=7000"`
	Category          string       `json:"category" validate:"required,uuid"`
	EventDate         *dateTime    `json:"eventDate" validate:"required"`
	Location          *locationDTO `json:"location" validate:"required"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int         `json:"participantLimit" validate:"omitempty,gte=0"`
	RequestModeration *bool        `json:"requestModeration"`
}

func (r newEventRequest) toModel() model.NewEvent {
	in := model.NewEvent{
		Title:             r.Title,
		Annotation:        r.Annotation,
		Description:       r.Description,
		CategoryID:        r.Category,
		EventDate:         r.EventDate.Time,
		Location:          model.Location{Lat: r.Location.Lat, Lon: r.Location.Lon},
		RequestModeration: true,
	}
	if r.Paid != nil {
		in.Paid = *r.Paid
	}
	if r.ParticipantLimit != nil {
		in.ParticipantLimit = *r.ParticipantLimit
	}
	if r.RequestModeration != nil {
		in.RequestModeration = *r.RequestModeration
	}
	return in
}

type updateEventRequest struct {
	Title             *string      `json:"title" validate:"omitempty,min=3,max=120"`
	Annotation        *string      `json:"annotation" validate:"omitempty,min=20,max=2000"`
	Description       *string      `json:"description" validate:"omitempty,min=20,max=7000"`
	Category          *string      `json:"category" validate:"omitempty,uuid"`
	EventDate         *dateTime    `json:"eventDate"`
	Location          *locationDTO `json:"location"`
	Paid              *bool        `json:"paid"`
	ParticipantLimit  *int         `json:"participantLimit" validate:"omitempty,gte=0"`
	RequestModeration *bool        `json:"requestModeration"`
	StateAction       *string      `json:"stateAction"`
}

func (r updateEventRequest) patch() model.EventPatch {
	p := model.EventPatch{
		Title:             r.Title,
		Annotation:        r.Annotation,
		Description:       r.Description,
		CategoryID:        r.Category,
		Paid:              r.Paid,
		ParticipantLimit:  r.ParticipantLimit,
		RequestModeration: r.RequestModeration,
	}
	if r.EventDate != nil {
		t := r.EventDate.Time
		p.EventDate = &t
	}
	if r.Location != nil {
		p.Location = &model.Location{Lat: r.Location.Lat, Lon: r.Location.Lon}
	}
	return p
}

func (r updateEventRequest) userPatch() (model.UserEventPatch, error) {
	up := model.UserEventPatch{EventPatch: r.patch()}
	if r.StateAction != nil {
		a, err := model.ParseUserStateAction(*r.StateAction)
		if err != nil {
			return up, err
		}
		up.StateAction = &a
	}
	return up, nil
}

func (r updateEventRequest) adminPatch() (model.AdminEventPatch, error) {
	ap := model.AdminEventPatch{EventPatch: r.patch()}
	if r.StateAction != nil {
		a, err := model.ParseAdminStateAction(*r.StateAction)
		if err != nil {
			return ap, err
		}
		ap.StateAction = &a
	}
	return ap, nil
}

type statusUpdateRequest struct {
	RequestIDs []string `json:"requestIds" validate:"required,dive,uuid"`
	Status     string   `json:"status" validate:"required"`
}

func (r statusUpdateRequest) toModel() (model.StatusUpdate, error) {
	st, err := model.ParseModerationStatus(r.Status)
	if err != nil {
		return model.StatusUpdate{}, err
	}
	return model.StatusUpdate{RequestIDs: r.RequestIDs, Status: st}, nil
}

type newUserRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=250"`
	Email string `json:"email" validate:"required,email,min=6,max=254"`
}

type newCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=50"`
}
