package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
)

const (
	orderNumberPrefix   = "ORD-"
	orderNumberLength   = 8
	orderNumberAttempts = 5
	orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	defaultCurrency = "MXN"
)

// CheckoutRequest содержит параметры оформления заказа.
type CheckoutRequest struct {
	CardID   uuid.UUID
	Shipping model.Address
}

// Checkout оформляет заказ из активной корзины покупателя.
//
// В одной транзакции списываются остатки всех позиций, создаются заказ
// и платёж в статусе PENDING, корзина переводится в CONVERTED. При любой
// ошибке ни одно изменение не сохраняется.
func (s *Service) Checkout(ctx context.Context, customerID int64, req CheckoutRequest) (*model.Order, error) {
	if req.Shipping.Country == "" {
		req.Shipping.Country = "MX"
	}
	if err := validateAddress(req.Shipping); err != nil {
		return nil, err
	}

	taxRate := decimal.NewFromFloat(s.settings.TaxRatePercent(ctx))
	maxAttempts := s.settings.MaxPaymentAttempts(ctx)

	var order *model.Order
	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		cart, err := s.repo.FindActiveCart(ctx, model.CartOwner{CustomerID: customerID}, true)
		if err != nil {
			if errors.Is(err, apperr.ErrCartNotFound) {
				return apperr.New(apperr.ErrCartNotFound, "No se encontró un carrito activo para este usuario.")
			}
			return err
		}
		if len(cart.Items) == 0 {
			return apperr.New(apperr.ErrCartNotFound, "Tu carrito de compras está vacío.")
		}

		card, err := s.repo.FindCard(ctx, req.CardID, customerID)
		if err != nil {
			if errors.Is(err, apperr.ErrCardNotFound) {
				return apperr.New(apperr.ErrCardNotFound, "Tarjeta no encontrada o no pertenece a este usuario.")
			}
			return err
		}

		stocks, err := s.reserveStock(ctx, cart.Items)
		if err != nil {
			return err
		}
		for productID, stock := range stocks {
			if err := s.repo.UpdateProductStock(ctx, productID, stock); err != nil {
				return err
			}
		}

		order = buildOrder(customerID, cart, req.Shipping, taxRate)
		order.CreatedAt = s.now()
		if err := s.createOrder(ctx, order); err != nil {
			return err
		}

		payment := &model.Payment{
			UUID:          uuid.New(),
			OrderID:       order.ID,
			OrderUUID:     order.UUID,
			CardID:        card.ID,
			Amount:        order.TotalAmount,
			Currency:      defaultCurrency,
			Status:        model.PaymentStatusPending,
			AttemptNumber: 1,
			MaxAttempts:   maxAttempts,
		}
		if err := s.repo.CreatePayment(ctx, payment); err != nil {
			return err
		}

		return s.repo.UpdateCartStatus(ctx, cart.ID, model.CartStatusConverted)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.String("orderNumber", order.Number),
		zap.Int64("customerID", customerID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	return order, nil
}

// reserveStock блокирует товары корзины в порядке возрастания id и
// возвращает новые остатки. Остатки не меняются, пока не проверены все позиции.
func (s *Service) reserveStock(ctx context.Context, items []model.CartItem) (map[int64]int, error) {
	sorted := make([]model.CartItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ProductID < sorted[j].ProductID })

	stocks := make(map[int64]int, len(sorted))
	for _, item := range sorted {
		product, err := s.repo.FindProductForUpdate(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, apperr.ErrProductNotFound) {
				return nil, apperr.New(apperr.ErrProductNotFound, "Producto no encontrado. ID: %d", item.ProductID)
			}
			return nil, err
		}
		if product.Stock < item.Quantity {
			return nil, apperr.New(apperr.ErrInsufficientStock,
				"Stock insuficiente para '%s'. Solicitado: %d, Stock: %d",
				product.Name, item.Quantity, product.Stock)
		}
		stocks[product.ID] = product.Stock - item.Quantity
	}
	return stocks, nil
}

func buildOrder(customerID int64, cart *model.Cart, shipping model.Address, taxRate decimal.Decimal) *model.Order {
	order := &model.Order{
		UUID:            uuid.New(),
		CustomerID:      customerID,
		ShippingAddress: shipping,
		Status:          model.OrderStatusPending,
		ShippingCost:    decimal.Zero,
	}

	subtotal := decimal.Zero
	for _, item := range cart.Items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		order.Items = append(order.Items, model.OrderItem{
			UUID:        uuid.New(),
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    line,
		})
		subtotal = subtotal.Add(line)
	}

	order.Subtotal = subtotal
	order.Tax = subtotal.Mul(taxRate).Div(decimal.NewFromInt(100)).Round(2)
	order.TotalAmount = subtotal.Add(order.Tax).Add(order.ShippingCost)
	return order
}

// createOrder сохраняет заказ, генерируя номер заново при совпадении с существующим.
func (s *Service) createOrder(ctx context.Context, order *model.Order) error {
	for attempt := 1; ; attempt++ {
		number, err := newOrderNumber()
		if err != nil {
			return err
		}
		order.Number = number

		err = s.repo.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperr.ErrDuplicateOrderNumber) || attempt == orderNumberAttempts {
			return err
		}
		s.logger.Warn("order number collision, regenerating", zap.String("orderNumber", number))
	}
}

func newOrderNumber() (string, error) {
	buf := make([]byte, orderNumberLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate order number: %w", err)
	}

	var b strings.Builder
	b.WriteString(orderNumberPrefix)
	for _, c := range buf {
		b.WriteByte(orderNumberAlphabet[int(c)%len(orderNumberAlphabet)])
	}
	return b.String(), nil
}

// GetOrder возвращает заказ покупателя вместе с позициями.
func (s *Service) GetOrder(ctx context.Context, customerID int64, orderUUID uuid.UUID) (*model.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderUUID, customerID, false)
	if err != nil {
		if errors.Is(err, apperr.ErrOrderNotFound) {
			return nil, apperr.New(apperr.ErrOrderNotFound, "Orden no encontrada o no pertenece al usuario.")
		}
		return nil, err
	}
	return order, nil
}
