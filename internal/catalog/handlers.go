package catalog

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ADI-2707/BillSwift/internal/common"
)

// Handler exposes the public catalog endpoints.
type Handler struct {
	Service *Service
}

// ListComponents handles GET /api/v1/components.
func (h *Handler) ListComponents(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	components, err := h.Service.ListComponents(r.Context())
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": components})
}

// SearchComponents handles GET /api/v1/admin/components/search?q=...
func (h *Handler) SearchComponents(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	components, err := h.Service.SearchComponents(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": components})
}

// ListProducts handles GET /api/v1/products with optional starter_type and
// rating_kw filters.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	query := ProductQuery{StarterType: strings.TrimSpace(r.URL.Query().Get("starter_type"))}
	if raw := strings.TrimSpace(r.URL.Query().Get("rating_kw")); raw != "" {
		rating, err := decimal.NewFromString(raw)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "rating_kw must be a number", nil)
			return
		}
		query.RatingKW = &rating
	}
	products, err := h.Service.ListProducts(r.Context(), query)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": products})
}

// GetProduct handles GET /api/v1/products/{id}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	product, err := h.Service.GetProduct(r.Context(), id)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}
