package handler

import (
	"net/http"

	"github.com/mmeshcher/storefront/internal/middleware"
)

// SearchProducts ищет товары по параметру q.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	var customerID *int64
	if id, ok := middleware.GetCustomerIDFromContext(r.Context()); ok {
		customerID = &id
	}

	products, err := h.service.SearchProducts(r.Context(), customerID, r.URL.Query().Get("q"), clientInfo(r))
	if err != nil {
		h.fail(w, r, "search products", err)
		return
	}

	h.writeSuccess(w, http.StatusOK, newProductResponses(products))
}
