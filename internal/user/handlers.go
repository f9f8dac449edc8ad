package user

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ADI-2707/BillSwift/internal/common"
)

// Handler exposes the admin user management endpoints.
type Handler struct {
	Service *Service
}

// ListPending handles GET /api/v1/admin/users/pending.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "user service not configured", nil)
		return
	}
	users, err := h.Service.ListPending(r.Context())
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": users})
}

// ListAll handles GET /api/v1/admin/users.
func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "user service not configured", nil)
		return
	}
	users, err := h.Service.ListAll(r.Context())
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": users})
}

// Approve handles PUT /api/v1/admin/users/{id}/approve.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "user service not configured", nil)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "user not found", nil)
		return
	}
	user, err := h.Service.Approve(r.Context(), id)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": user})
}
