// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/logger"
	"github.com/Shivanand-hulikatti/explore-with-me/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Status    string                    `json:"status"`
	Reason    string                    `json:"reason"`
	Message   string                    `json:"message"`
	Errors    map[string]string         `json:"errors,omitempty"`
	Partial   *model.StatusUpdateResult `json:"partial,omitempty"`
	Timestamp string                    `json:"timestamp"`
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, reason, msg string) {
	writeJSON(w, r, status, ErrorResponse{
		Status:    strings.ReplaceAll(strings.ToUpper(http.StatusText(status)), " ", "_"),
		Reason:    reason,
		Message:   msg,
		Timestamp: time.Now().UTC().Format(model.DateTimeLayout),
	})
}

// writeServiceError maps business error kinds to HTTP statuses; anything else
// is logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var reason string
	switch {
	case errors.Is(err, model.ErrValidation):
		status, reason = http.StatusBadRequest, "Incorrectly made request."
	case errors.Is(err, model.ErrNotFound):
		status, reason = http.StatusNotFound, "The required object was not found."
	case errors.Is(err, model.ErrConflict):
		status, reason = http.StatusConflict, "For the requested operation the conditions are not met."
	default:
		logger.WithCtx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, r, http.StatusInternalServerError, "Internal server error.", "internal server error")
		return
	}

	resp := ErrorResponse{
		Status:    strings.ReplaceAll(strings.ToUpper(http.StatusText(status)), " ", "_"),
		Reason:    reason,
		Message:   err.Error(),
		Timestamp: time.Now().UTC().Format(model.DateTimeLayout),
	}
	var merr *model.Error
	if errors.As(err, &merr) {
		resp.Message = merr.Message
		resp.Errors = merr.Meta
		resp.Partial = merr.Partial
	}
	writeJSON(w, r, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		return model.Validation("invalid request body: %v", err)
	}
	return validateRequest(dst)
}

// pathID reads a uuid path parameter.
func pathID(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", model.Validation("%s must be a uuid, got %q", name, raw)
	}
	return id.String(), nil
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
