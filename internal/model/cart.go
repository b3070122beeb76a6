package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartStatus описывает состояние корзины.
type CartStatus string

const (
	CartStatusActive    CartStatus = "ACTIVE"
	CartStatusExpired   CartStatus = "EXPIRED"
	CartStatusConverted CartStatus = "CONVERTED"
)

// CartOwner определяет владельца корзины: покупателя или анонимную сессию.
// Заполнено ровно одно из полей.
type CartOwner struct {
	CustomerID int64
	SessionID  string
}

// Anonymous сообщает, что владелец корзины не аутентифицирован.
func (o CartOwner) Anonymous() bool {
	return o.CustomerID == 0
}

// Cart описывает корзину покупателя вместе с позициями.
type Cart struct {
	ID          int64
	UUID        uuid.UUID
	CustomerID  *int64
	SessionID   *string
	Status      CartStatus
	Items       []CartItem
	TotalAmount decimal.Decimal
	TotalItems  int
	IPAddress   string
	UserAgent   string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// CartItem описывает позицию корзины. Цена фиксируется в момент добавления.
type CartItem struct {
	ID          int64
	UUID        uuid.UUID
	CartID      int64
	ProductID   int64
	ProductName string
	ProductSKU  string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

// Item возвращает позицию корзины для товара, если она есть.
func (c *Cart) Item(productID int64) (*CartItem, bool) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// Recalculate пересчитывает подытоги позиций и итоги корзины.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	count := 0
	for i := range c.Items {
		item := &c.Items[i]
		item.Subtotal = item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(item.Subtotal)
		count += item.Quantity
	}
	c.TotalAmount = total
	c.TotalItems = count
}

// Expired сообщает, истёк ли срок жизни корзины к моменту now.
func (c *Cart) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}
