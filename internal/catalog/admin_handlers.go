package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ADI-2707/BillSwift/internal/common"
)

// AdminHandler exposes the admin catalog CRUD endpoints.
type AdminHandler struct {
	Service *Service
}

// CreateComponent handles POST /api/v1/admin/components.
func (h *AdminHandler) CreateComponent(w http.ResponseWriter, r *http.Request) {
	var form ComponentForm
	if !decodeForm(w, r, &form) {
		return
	}
	component, err := h.Service.CreateComponent(r.Context(), form)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": component})
}

// UpdateComponent handles PUT /api/v1/admin/components/{id}.
func (h *AdminHandler) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var form ComponentForm
	if !decodeForm(w, r, &form) {
		return
	}
	component, err := h.Service.UpdateComponent(r.Context(), id, form)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": component})
}

// DeleteComponent handles DELETE /api/v1/admin/components/{id}.
func (h *AdminHandler) DeleteComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteComponent(r.Context(), id); err != nil {
		common.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAllComponents handles GET /api/v1/admin/components, inactive included.
func (h *AdminHandler) ListAllComponents(w http.ResponseWriter, r *http.Request) {
	components, err := h.Service.components.List(r.Context(), false)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": components})
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var form ProductForm
	if !decodeForm(w, r, &form) {
		return
	}
	product, err := h.Service.CreateProduct(r.Context(), form)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": product})
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}.
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var form ProductForm
	if !decodeForm(w, r, &form) {
		return
	}
	product, err := h.Service.UpdateProduct(r.Context(), id, form)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}.
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.Service.DeleteProduct(r.Context(), id); err != nil {
		common.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeForm(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
		return 0, false
	}
	return id, true
}
