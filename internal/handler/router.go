package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/storefront/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger, h.events))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", h.Ping)

		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Optional)

			r.Get("/products/search", h.SearchProducts)
			r.Post("/cart/items", h.AddCartItem)
			r.Get("/cart", h.GetCart)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/orders", h.Checkout)
			r.Get("/orders/{orderID}", h.GetOrder)
			r.Post("/orders/{orderID}/pay", h.PayOrder)

			r.Post("/cards", h.RegisterCard)
			r.Get("/cards", h.ListCards)
		})

		if h.tokenizer != nil {
			r.Group(func(r chi.Router) {
				if h.limiter != nil {
					r.Use(h.limiter.Middleware)
				}
				r.Use(custommiddleware.APIKey(h.apiKey))

				r.Post("/tokenize", h.Tokenize)
			})
		}

		if h.config != nil {
			r.With(custommiddleware.APIKey(h.apiKey)).Put("/config", h.UpdateConfig)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, http.StatusNotFound, "Recurso no encontrado.")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, r, http.StatusMethodNotAllowed, "Método no permitido.")
	})

	return r
}
