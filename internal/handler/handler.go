// Package handler содержит HTTP-обработчики API интернет-магазина.
package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/events"
	"github.com/mmeshcher/storefront/internal/middleware"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/service"
	"github.com/mmeshcher/storefront/internal/tokenize"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	RegisterCustomer(ctx context.Context, req service.RegisterCustomerRequest) (*model.Customer, error)
	AuthenticateCustomer(ctx context.Context, email, password string) (*model.Customer, error)
	SearchProducts(ctx context.Context, customerID *int64, query string, client service.ClientInfo) ([]model.Product, error)
	AddItem(ctx context.Context, owner model.CartOwner, productID int64, quantity int, client service.ClientInfo) (*model.Cart, error)
	GetCart(ctx context.Context, owner model.CartOwner) (*model.Cart, error)
	Checkout(ctx context.Context, customerID int64, req service.CheckoutRequest) (*model.Order, error)
	GetOrder(ctx context.Context, customerID int64, orderUUID uuid.UUID) (*model.Order, error)
	ProcessOrderPayment(ctx context.Context, customerID int64, orderUUID uuid.UUID) (*model.Payment, error)
	RegisterCard(ctx context.Context, customerID int64, req tokenize.Request) (*model.TokenizedCard, error)
	ListCards(ctx context.Context, customerID int64) ([]model.TokenizedCard, error)
}

// Tokenizer токенизирует карту по запросу внешнего клиента.
type Tokenizer interface {
	Tokenize(ctx context.Context, req tokenize.Request) (*tokenize.Result, error)
}

// ConfigUpdater изменяет бизнес-параметры.
type ConfigUpdater interface {
	Update(ctx context.Context, key, value string) (*model.SystemConfig, error)
}

// Handler реализует HTTP-обработчики API магазина.
type Handler struct {
	service        Service
	tokenizer      Tokenizer
	config         ConfigUpdater
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	events         events.Publisher
	apiKey         string
	limiter        *middleware.RateLimiter
}

// Option настраивает необязательные зависимости обработчика.
type Option func(*Handler)

// WithTokenizer подключает эндпоинт /tokenize.
func WithTokenizer(t Tokenizer) Option {
	return func(h *Handler) { h.tokenizer = t }
}

// WithConfig подключает эндпоинт /config.
func WithConfig(c ConfigUpdater) Option {
	return func(h *Handler) { h.config = c }
}

// WithEvents задаёт получателя событий журнала обращений.
func WithEvents(p events.Publisher) Option {
	return func(h *Handler) { h.events = p }
}

// WithAPIKey задаёт ключ служебных эндпоинтов.
func WithAPIKey(key string) Option {
	return func(h *Handler) { h.apiKey = key }
}

// WithTokenizeLimiter ограничивает частоту запросов к /tokenize.
func WithTokenizeLimiter(l *middleware.RateLimiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, opts ...Option) *Handler {
	h := &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Ping отвечает на проверку доступности.
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, http.StatusOK, "pong")
}

func clientInfo(r *http.Request) service.ClientInfo {
	return service.ClientInfo{
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}
