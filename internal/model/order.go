package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "PENDING"
	OrderStatusPaymentProcessing OrderStatus = "PAYMENT_PROCESSING"
	OrderStatusPaymentFailed     OrderStatus = "PAYMENT_FAILED"
	OrderStatusPaid              OrderStatus = "PAID"
	OrderStatusShipped           OrderStatus = "SHIPPED"
	OrderStatusDelivered         OrderStatus = "DELIVERED"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
	OrderStatusRefunded          OrderStatus = "REFUNDED"
)

// Order описывает заказ, созданный из корзины при оформлении.
type Order struct {
	ID              int64
	UUID            uuid.UUID
	Number          string
	CustomerID      int64
	ShippingAddress Address
	Status          OrderStatus
	Subtotal        decimal.Decimal
	Tax             decimal.Decimal
	ShippingCost    decimal.Decimal
	TotalAmount     decimal.Decimal
	Items           []OrderItem
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// OrderItem хранит неизменяемый снимок позиции корзины на момент оформления.
type OrderItem struct {
	ID          int64
	UUID        uuid.UUID
	OrderID     int64
	ProductID   int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// PaymentStatus описывает статус текущей попытки оплаты.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusApproved   PaymentStatus = "APPROVED"
	PaymentStatusDeclined   PaymentStatus = "DECLINED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

// Payment описывает оплату заказа. Повторная попытка изменяет ту же запись.
type Payment struct {
	ID            int64
	UUID          uuid.UUID
	OrderID       int64
	OrderUUID     uuid.UUID
	CardID        int64
	Amount        decimal.Decimal
	Currency      string
	Status        PaymentStatus
	AttemptNumber int
	MaxAttempts   int
	TransactionID string
	FailureReason string
	ProcessedAt   *time.Time
}

// Retryable сообщает, можно ли запустить по записи новую попытку.
func (p *Payment) Retryable() bool {
	return p.Status == PaymentStatusPending || p.Status == PaymentStatusDeclined
}
