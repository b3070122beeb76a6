package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/service"
)

type checkoutRequest struct {
	CardID          string        `json:"card_id"`
	ShippingAddress model.Address `json:"shipping_address"`
}

// Checkout оформляет заказ из активной корзины покупателя.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customerID(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	cardID, err := uuid.Parse(req.CardID)
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, msgInvalidUUID)
		return
	}

	order, err := h.service.Checkout(r.Context(), customerID, service.CheckoutRequest{
		CardID:   cardID,
		Shipping: req.ShippingAddress,
	})
	if err != nil {
		h.fail(w, r, "checkout", err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, newOrderResponse(order))
}

// GetOrder возвращает заказ текущего покупателя.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customerID(w, r)
	if !ok {
		return
	}
	orderID, ok := h.orderUUID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), customerID, orderID)
	if err != nil {
		h.fail(w, r, "get order", err)
		return
	}

	h.writeSuccess(w, http.StatusOK, newOrderResponse(order))
}

// PayOrder выполняет очередную попытку оплаты заказа.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customerID(w, r)
	if !ok {
		return
	}
	orderID, ok := h.orderUUID(w, r)
	if !ok {
		return
	}

	payment, err := h.service.ProcessOrderPayment(r.Context(), customerID, orderID)
	if err != nil {
		h.fail(w, r, "process payment", err)
		return
	}

	h.writeSuccess(w, http.StatusOK, newPaymentResponse(payment))
}
