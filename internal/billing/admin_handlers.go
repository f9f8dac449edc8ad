package billing

import (
	"net/http"

	"github.com/ADI-2707/BillSwift/internal/common"
)

// AdminHandler exposes the admin billing endpoints.
type AdminHandler struct {
	Service *Service
}

// ListAll handles GET /api/v1/admin/billing with page/per_page pagination.
func (h *AdminHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 20)
	bills, total, err := h.Service.ListAll(r.Context(), page, perPage)
	if err != nil {
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": bills,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Delete handles DELETE /api/v1/admin/billing/{id}.
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := billID(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		common.WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
