package billing

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ADI-2707/BillSwift/internal/common"
	"github.com/ADI-2707/BillSwift/internal/export"
	"github.com/ADI-2707/BillSwift/internal/obs"
	"github.com/ADI-2707/BillSwift/internal/order"
)

// Handler exposes the billing endpoints for authenticated users.
type Handler struct {
	Service *Service
}

// Create handles POST /api/v1/billing.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	var in CreateBillInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	bill, err := h.Service.Create(r.Context(), session, in)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": bill})
}

// ListMine handles GET /api/v1/billing/my-bills.
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	bills, err := h.Service.ListMine(r.Context(), session)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": bills})
}

// Get handles GET /api/v1/billing/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	id, ok := billID(w, r)
	if !ok {
		return
	}
	bill, err := h.Service.Get(r.Context(), session, id)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": bill})
}

// Template handles GET /api/v1/billing/{id}/template.
func (h *Handler) Template(w http.ResponseWriter, r *http.Request) {
	session, ok := requireSession(w, r)
	if !ok {
		return
	}
	id, ok := billID(w, r)
	if !ok {
		return
	}
	result, err := h.Service.Template(r.Context(), session, id)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": result})
}

// Preview handles POST /api/v1/billing/preview. The body is an order
// document; the response is the same document with recomputed totals.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	var doc order.Order
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order document", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Service.Preview(doc)})
}

// Export handles POST /api/v1/billing/export and streams back an xlsx
// workbook built from the recomputed order document.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	var doc order.Order
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order document", nil)
		return
	}
	priced := h.Service.Preview(doc)

	filename := export.Filename(h.Service.now())
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := export.Write(w, priced); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to generate spreadsheet", nil)
		return
	}
	if obs.ExportsGeneratedTotal != nil {
		obs.ExportsGeneratedTotal.Inc()
	}
}

func requireSession(w http.ResponseWriter, r *http.Request) (common.Session, bool) {
	session, ok := common.SessionFrom(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return common.Session{}, false
	}
	return session, true
}

func billID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "bill not found", nil)
		return 0, false
	}
	return id, true
}
