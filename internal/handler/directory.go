package handler

import (
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/explore-with-me/internal/directory"
)

// DirectoryHandler serves the admin endpoints that register users and categories.
type DirectoryHandler struct {
	reg directory.Registry
}

func NewDirectoryHandler(reg directory.Registry) *DirectoryHandler {
	return &DirectoryHandler{reg: reg}
}

// CreateUser handles POST /admin/users
func (h *DirectoryHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req newUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	u, err := h.reg.CreateUser(r.Context(), strings.TrimSpace(req.Name), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, u)
}

// CreateCategory handles POST /admin/categories
func (h *DirectoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req newCategoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	c, err := h.reg.CreateCategory(r.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, c)
}
