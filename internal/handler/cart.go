package handler

import (
	"net/http"
	"strings"

	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/model"
)

// SessionHeader передаёт идентификатор анонимной корзины.
const SessionHeader = "X-Session-ID"

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

func cartOwner(r *http.Request) model.CartOwner {
	if id, ok := middleware.GetCustomerIDFromContext(r.Context()); ok {
		return model.CartOwner{CustomerID: id}
	}
	return model.CartOwner{SessionID: strings.TrimSpace(r.Header.Get(SessionHeader))}
}

// AddCartItem добавляет товар в корзину покупателя или анонимной сессии.
// Для новой анонимной корзины идентификатор сессии возвращается в заголовке.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.ProductID <= 0 {
		h.writeError(w, r, http.StatusBadRequest, "El ID del producto es requerido.")
		return
	}

	cart, err := h.service.AddItem(r.Context(), cartOwner(r), req.ProductID, req.Quantity, clientInfo(r))
	if err != nil {
		h.fail(w, r, "add cart item", err)
		return
	}

	if cart.SessionID != nil {
		w.Header().Set(SessionHeader, *cart.SessionID)
	}
	h.writeSuccess(w, http.StatusOK, newCartResponse(cart))
}

// GetCart возвращает активную корзину.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), cartOwner(r))
	if err != nil {
		h.fail(w, r, "get cart", err)
		return
	}

	h.writeSuccess(w, http.StatusOK, newCartResponse(cart))
}
