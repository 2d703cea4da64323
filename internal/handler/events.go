package handler

import (
	"net"
	"net/http"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/service"
)

// EventHandler serves the owner, admin and public event endpoints.
type EventHandler struct {
	svc *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{svc: svc}
}

// CreateEvent handles POST /users/{userId}/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req newEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), userID, req.toModel())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, event)
}

// ListOwnEvents handles GET /users/{userId}/events
func (h *EventHandler) ListOwnEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	page, err := parsePage(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	events, err := h.svc.ListByOwner(r.Context(), userID, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

// GetOwnEvent handles GET /users/{userId}/events/{eventId}
func (h *EventHandler) GetOwnEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	event, err := h.svc.GetByOwner(r.Context(), userID, eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, event)
}

// UpdateOwnEvent handles PATCH /users/{userId}/events/{eventId}
func (h *EventHandler) UpdateOwnEvent(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req updateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	patch, err := req.userPatch()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	event, err := h.svc.PatchByOwner(r.Context(), userID, eventID, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, event)
}

// SearchAdmin handles GET /admin/events
func (h *EventHandler) SearchAdmin(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAdminFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	page, err := parsePage(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	events, err := h.svc.Search(r.Context(), filter, page)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

// UpdateAdmin handles PATCH /admin/events/{eventId}
func (h *EventHandler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req updateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	patch, err := req.adminPatch()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	event, err := h.svc.PatchByAdmin(r.Context(), eventID, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, event)
}

// SearchPublic handles GET /events
func (h *EventHandler) SearchPublic(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePublicFilter(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	page, err := parsePage(r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	events, err := h.svc.SearchPublic(r.Context(), filter, page, visit(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}

// GetPublic handles GET /events/{eventId}
func (h *EventHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	event, err := h.svc.GetPublished(r.Context(), eventID, service.Visit{URI: service.EventURI(eventID), IP: clientIP(r)})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, event)
}

// visit describes the public page being read. RemoteAddr is already the
// client address once middleware.RealIP has run.
func visit(r *http.Request) service.Visit {
	return service.Visit{URI: r.URL.Path, IP: clientIP(r)}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
