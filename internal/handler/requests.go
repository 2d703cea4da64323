package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/service"
	"github.com/google/uuid"
)

// RequestHandler serves participation request endpoints.
type RequestHandler struct {
	svc *service.RequestService
}

func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// CreateRequest handles POST /users/{userId}/requests?eventId=
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	raw := r.URL.Query().Get("eventId")
	eventID, err := uuid.Parse(raw)
	if err != nil {
		writeServiceError(w, r, model.Validation("eventId must be a uuid, got %q", raw))
		return
	}

	req, err := h.svc.CreateRequest(r.Context(), userID, eventID.String())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, req)
}

// ListOwnRequests handles GET /users/{userId}/requests
func (h *RequestHandler) ListOwnRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	list, err := h.svc.ListByRequester(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

// CancelRequest handles PATCH /users/{userId}/requests/{requestId}/cancel.
// Responds 404 for unknown or foreign requests and 409 once the organizer has
// confirmed or rejected the request; canceling twice returns 200 unchanged.
func (h *RequestHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	requestID, err := pathID(r, "requestId")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	req, err := h.svc.CancelRequest(r.Context(), userID, requestID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, req)
}

// ListEventRequests handles GET /users/{userId}/events/{eventId}/requests
func (h *RequestHandler) ListEventRequests(w http.ResponseWriter, r *http.Request) {
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

	list, err := h.svc.ListForEvent(r.Context(), userID, eventID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

// Moderate handles PATCH /users/{userId}/events/{eventId}/requests
// A batch stopped by the participant limit answers 409 with the decisions
// already made in "partial".
func (h *RequestHandler) Moderate(w http.ResponseWriter, r *http.Request) {
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
	var req statusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	upd, err := req.toModel()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res, err := h.svc.Moderate(r.Context(), userID, eventID, upd)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}
