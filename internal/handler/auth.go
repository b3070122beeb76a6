package handler

import (
	"net/http"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/service"
)

type registerRequest struct {
	Email     string        `json:"email"`
	Password  string        `json:"password"`
	Phone     string        `json:"phone"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	Address   model.Address `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register регистрирует покупателя и сразу выдаёт ему токен.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.RegisterCustomer(r.Context(), service.RegisterCustomerRequest{
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
	})
	if err != nil {
		h.fail(w, r, "register customer", err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, c.ID)
	h.writeSuccess(w, http.StatusCreated, newAuthResponse(h.authMiddleware.Token(c.ID), c))
}

// Login выполняет аутентификацию покупателя и установку cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	if req.Email == "" || req.Password == "" {
		h.writeError(w, r, http.StatusBadRequest, "El email y la contraseña son requeridos.")
		return
	}

	c, err := h.service.AuthenticateCustomer(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, "login customer", err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, c.ID)
	h.writeSuccess(w, http.StatusOK, newAuthResponse(h.authMiddleware.Token(c.ID), c))
}
