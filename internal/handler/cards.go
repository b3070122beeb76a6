package handler

import (
	"net/http"

	"github.com/mmeshcher/storefront/internal/tokenize"
)

// RegisterCard токенизирует и сохраняет карту покупателя.
func (h *Handler) RegisterCard(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customerID(w, r)
	if !ok {
		return
	}

	var req tokenize.Request
	if !h.decode(w, r, &req) {
		return
	}

	card, err := h.service.RegisterCard(r.Context(), customerID, req)
	if err != nil {
		h.fail(w, r, "register card", err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, newCardResponse(card))
}

// ListCards возвращает активные карты покупателя.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	customerID, ok := h.customerID(w, r)
	if !ok {
		return
	}

	cards, err := h.service.ListCards(r.Context(), customerID)
	if err != nil {
		h.fail(w, r, "list cards", err)
		return
	}

	resp := make([]cardResponse, 0, len(cards))
	for i := range cards {
		resp = append(resp, newCardResponse(&cards[i]))
	}
	h.writeSuccess(w, http.StatusOK, resp)
}

// Tokenize выдаёт токен карты без её сохранения.
func (h *Handler) Tokenize(w http.ResponseWriter, r *http.Request) {
	var req tokenize.Request
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.tokenizer.Tokenize(r.Context(), req)
	if err != nil {
		h.fail(w, r, "tokenize card", err)
		return
	}

	h.writeSuccess(w, http.StatusOK, res)
}
