package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/storefront/internal/model"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type authResponse struct {
	Token      string    `json:"token"`
	CustomerID uuid.UUID `json:"customer_id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
}

func newAuthResponse(token string, c *model.Customer) authResponse {
	return authResponse{
		Token:      token,
		CustomerID: c.UUID,
		Email:      c.Email,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
	}
}

type productResponse struct {
	ID          int64     `json:"id"`
	UUID        uuid.UUID `json:"uuid"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category,omitempty"`
	Brand       string    `json:"brand,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
}

func newProductResponses(products []model.Product) []productResponse {
	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, productResponse{
			ID:          p.ID,
			UUID:        p.UUID,
			SKU:         p.SKU,
			Name:        p.Name,
			Description: p.Description,
			Price:       money(p.Price),
			Stock:       p.Stock,
			Category:    p.Category,
			Brand:       p.Brand,
			ImageURL:    p.ImageURL,
		})
	}
	return resp
}

type cartItemResponse struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	ProductSKU  string `json:"product_sku,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type cartResponse struct {
	CartID      uuid.UUID          `json:"cart_id"`
	SessionID   string             `json:"session_id,omitempty"`
	Status      model.CartStatus   `json:"status"`
	Items       []cartItemResponse `json:"items"`
	TotalItems  int                `json:"total_items"`
	TotalAmount string             `json:"total_amount"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

func newCartResponse(c *model.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			ProductSKU:  it.ProductSKU,
			Quantity:    it.Quantity,
			UnitPrice:   money(it.UnitPrice),
			Subtotal:    money(it.Subtotal),
		})
	}
	resp := cartResponse{
		CartID:      c.UUID,
		Status:      c.Status,
		Items:       items,
		TotalItems:  c.TotalItems,
		TotalAmount: money(c.TotalAmount),
		ExpiresAt:   c.ExpiresAt,
	}
	if c.SessionID != nil {
		resp.SessionID = *c.SessionID
	}
	return resp
}

type orderItemResponse struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type orderResponse struct {
	OrderID         uuid.UUID           `json:"order_id"`
	OrderNumber     string              `json:"order_number"`
	Status          model.OrderStatus   `json:"status"`
	Items           []orderItemResponse `json:"items"`
	Subtotal        string              `json:"subtotal"`
	Tax             string              `json:"tax"`
	ShippingCost    string              `json:"shipping_cost"`
	TotalAmount     string              `json:"total_amount"`
	ShippingAddress model.Address       `json:"shipping_address"`
	CreatedAt       time.Time           `json:"created_at"`
	CompletedAt     *time.Time          `json:"completed_at,omitempty"`
}

func newOrderResponse(o *model.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   money(it.UnitPrice),
			Subtotal:    money(it.Subtotal),
		})
	}
	return orderResponse{
		OrderID:         o.UUID,
		OrderNumber:     o.Number,
		Status:          o.Status,
		Items:           items,
		Subtotal:        money(o.Subtotal),
		Tax:             money(o.Tax),
		ShippingCost:    money(o.ShippingCost),
		TotalAmount:     money(o.TotalAmount),
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
		CompletedAt:     o.CompletedAt,
	}
}

type paymentResponse struct {
	PaymentID     uuid.UUID           `json:"payment_id"`
	OrderID       uuid.UUID           `json:"order_id"`
	Status        model.PaymentStatus `json:"status"`
	Amount        string              `json:"amount"`
	Currency      string              `json:"currency"`
	AttemptNumber int                 `json:"attempt_number"`
	MaxAttempts   int                 `json:"max_attempts"`
	TransactionID string              `json:"transaction_id,omitempty"`
	ProcessedAt   *time.Time          `json:"processed_at,omitempty"`
}

func newPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		PaymentID:     p.UUID,
		OrderID:       p.OrderUUID,
		Status:        p.Status,
		Amount:        money(p.Amount),
		Currency:      p.Currency,
		AttemptNumber: p.AttemptNumber,
		MaxAttempts:   p.MaxAttempts,
		TransactionID: p.TransactionID,
		ProcessedAt:   p.ProcessedAt,
	}
}

type cardResponse struct {
	CardID     uuid.UUID `json:"card_id"`
	LastFour   string    `json:"last_four_digits"`
	Brand      string    `json:"card_brand"`
	HolderName string    `json:"card_holder_name"`
	Default    bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

func newCardResponse(c *model.TokenizedCard) cardResponse {
	return cardResponse{
		CardID:     c.UUID,
		LastFour:   c.LastFour,
		Brand:      c.Brand,
		HolderName: c.HolderName,
		Default:    c.Default,
		CreatedAt:  c.CreatedAt,
	}
}
