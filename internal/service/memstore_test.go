package service

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/model"
)

type txKey struct{}

// memStore хранит данные в памяти. Транзакции сериализуются общим мьютексом,
// при ошибке состояние откатывается к снимку.
type memStore struct {
	mu     sync.Mutex
	nextID int64

	customers map[int64]model.Customer
	products  map[int64]model.Product
	carts     map[int64]model.Cart
	cards     map[int64]model.TokenizedCard
	orders    map[int64]model.Order
	payments  map[int64]model.Payment

	// число зафиксированных изменяющих вызовов
	writes int
	// сколько следующих вставок заказа отклонить как дубликат
	duplicateOrderNumbers int
}

type memSnapshot struct {
	nextID    int64
	customers map[int64]model.Customer
	products  map[int64]model.Product
	carts     map[int64]model.Cart
	cards     map[int64]model.TokenizedCard
	orders    map[int64]model.Order
	payments  map[int64]model.Payment
	writes    int
}

func newMemStore() *memStore {
	return &memStore{
		customers: map[int64]model.Customer{},
		products:  map[int64]model.Product{},
		carts:     map[int64]model.Cart{},
		cards:     map[int64]model.TokenizedCard{},
		orders:    map[int64]model.Order{},
		payments:  map[int64]model.Payment{},
	}
}

func cloneCart(c model.Cart) model.Cart {
	c.Items = slices.Clone(c.Items)
	return c
}

func cloneOrder(o model.Order) model.Order {
	o.Items = slices.Clone(o.Items)
	return o
}

func (m *memStore) snapshot() memSnapshot {
	s := memSnapshot{
		nextID:    m.nextID,
		customers: maps.Clone(m.customers),
		products:  maps.Clone(m.products),
		carts:     make(map[int64]model.Cart, len(m.carts)),
		cards:     maps.Clone(m.cards),
		orders:    make(map[int64]model.Order, len(m.orders)),
		payments:  maps.Clone(m.payments),
		writes:    m.writes,
	}
	for id, c := range m.carts {
		s.carts[id] = cloneCart(c)
	}
	for id, o := range m.orders {
		s.orders[id] = cloneOrder(o)
	}
	return s
}

func (m *memStore) restore(s memSnapshot) {
	m.nextID = s.nextID
	m.customers = s.customers
	m.products = s.products
	m.carts = s.carts
	m.cards = s.cards
	m.orders = s.orders
	m.payments = s.payments
	m.writes = s.writes
}

func (m *memStore) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Покупатели.

func (m *memStore) CreateCustomer(ctx context.Context, c *model.Customer) error {
	defer m.lock(ctx)()
	for _, existing := range m.customers {
		if existing.Email == c.Email || existing.Phone == c.Phone {
			return apperr.ErrCustomerAlreadyExists
		}
	}
	c.ID = m.id()
	m.customers[c.ID] = *c
	m.writes++
	return nil
}

func (m *memStore) FindCustomerByID(ctx context.Context, id int64) (*model.Customer, error) {
	defer m.lock(ctx)()
	c, ok := m.customers[id]
	if !ok {
		return nil, apperr.ErrCustomerNotFound
	}
	return &c, nil
}

func (m *memStore) findCustomer(match func(model.Customer) bool) (*model.Customer, error) {
	for _, c := range m.customers {
		if match(c) {
			return &c, nil
		}
	}
	return nil, apperr.ErrCustomerNotFound
}

func (m *memStore) FindCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	defer m.lock(ctx)()
	return m.findCustomer(func(c model.Customer) bool { return c.Email == email })
}

func (m *memStore) FindCustomerByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	defer m.lock(ctx)()
	return m.findCustomer(func(c model.Customer) bool { return c.Phone == phone })
}

// Товары.

func (m *memStore) SearchProducts(ctx context.Context, query string, minStock int) ([]model.Product, error) {
	defer m.lock(ctx)()
	query = strings.ToLower(query)
	var out []model.Product
	for _, p := range m.products {
		if p.Active && p.Stock > minStock && strings.Contains(strings.ToLower(p.Name), query) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FindActiveProduct(ctx context.Context, id int64) (*model.Product, error) {
	defer m.lock(ctx)()
	p, ok := m.products[id]
	if !ok || !p.Active {
		return nil, apperr.ErrProductNotFound
	}
	return &p, nil
}

func (m *memStore) FindProductForUpdate(ctx context.Context, id int64) (*model.Product, error) {
	defer m.lock(ctx)()
	p, ok := m.products[id]
	if !ok {
		return nil, apperr.ErrProductNotFound
	}
	return &p, nil
}

func (m *memStore) UpdateProductStock(ctx context.Context, id int64, stock int) error {
	defer m.lock(ctx)()
	p, ok := m.products[id]
	if !ok {
		return apperr.ErrProductNotFound
	}
	if stock < 0 {
		return errors.New("stock must not be negative")
	}
	p.Stock = stock
	m.products[id] = p
	m.writes++
	return nil
}

// Корзины.

func (m *memStore) FindActiveCart(ctx context.Context, owner model.CartOwner, _ bool) (*model.Cart, error) {
	defer m.lock(ctx)()
	for _, c := range m.carts {
		if c.Status != model.CartStatusActive {
			continue
		}
		if owner.Anonymous() {
			if c.SessionID != nil && *c.SessionID == owner.SessionID {
				cp := cloneCart(c)
				return &cp, nil
			}
			continue
		}
		if c.CustomerID != nil && *c.CustomerID == owner.CustomerID {
			cp := cloneCart(c)
			return &cp, nil
		}
	}
	return nil, apperr.ErrCartNotFound
}

func (m *memStore) CreateCart(ctx context.Context, c *model.Cart) error {
	defer m.lock(ctx)()
	c.ID = m.id()
	m.carts[c.ID] = cloneCart(*c)
	m.writes++
	return nil
}

func (m *memStore) SaveCartItem(ctx context.Context, item *model.CartItem) error {
	defer m.lock(ctx)()
	c, ok := m.carts[item.CartID]
	if !ok {
		return apperr.ErrCartNotFound
	}
	if item.ID == 0 {
		item.ID = m.id()
		c.Items = append(c.Items, *item)
	} else {
		for i := range c.Items {
			if c.Items[i].ID == item.ID {
				c.Items[i] = *item
			}
		}
	}
	m.carts[c.ID] = c
	m.writes++
	return nil
}

func (m *memStore) UpdateCartTotals(ctx context.Context, c *model.Cart) error {
	defer m.lock(ctx)()
	stored, ok := m.carts[c.ID]
	if !ok {
		return apperr.ErrCartNotFound
	}
	stored.TotalAmount = c.TotalAmount
	stored.TotalItems = c.TotalItems
	for i := range stored.Items {
		if item, ok := c.Item(stored.Items[i].ProductID); ok {
			stored.Items[i].Subtotal = item.Subtotal
		}
	}
	m.carts[c.ID] = stored
	m.writes++
	return nil
}

func (m *memStore) UpdateCartStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	defer m.lock(ctx)()
	c, ok := m.carts[cartID]
	if !ok {
		return apperr.ErrCartNotFound
	}
	c.Status = status
	m.carts[cartID] = c
	m.writes++
	return nil
}

// Карты.

func (m *memStore) CreateCard(ctx context.Context, c *model.TokenizedCard) error {
	defer m.lock(ctx)()
	c.ID = m.id()
	m.cards[c.ID] = *c
	m.writes++
	return nil
}

func (m *memStore) FindCard(ctx context.Context, cardUUID uuid.UUID, customerID int64) (*model.TokenizedCard, error) {
	defer m.lock(ctx)()
	for _, c := range m.cards {
		if c.UUID == cardUUID && c.CustomerID == customerID && c.Active {
			return &c, nil
		}
	}
	return nil, apperr.ErrCardNotFound
}

func (m *memStore) FindCardByID(ctx context.Context, id int64) (*model.TokenizedCard, error) {
	defer m.lock(ctx)()
	c, ok := m.cards[id]
	if !ok {
		return nil, apperr.ErrCardNotFound
	}
	return &c, nil
}

func (m *memStore) CardExists(ctx context.Context, customerID int64, lastFour, brand string) (bool, error) {
	defer m.lock(ctx)()
	for _, c := range m.cards {
		if c.CustomerID == customerID && c.LastFour == lastFour && c.Brand == brand {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListCards(ctx context.Context, customerID int64) ([]model.TokenizedCard, error) {
	defer m.lock(ctx)()
	var out []model.TokenizedCard
	for _, c := range m.cards {
		if c.CustomerID == customerID && c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Заказы и платежи.

func (m *memStore) CreateOrder(ctx context.Context, o *model.Order) error {
	defer m.lock(ctx)()
	if m.duplicateOrderNumbers > 0 {
		m.duplicateOrderNumbers--
		return apperr.ErrDuplicateOrderNumber
	}
	for _, existing := range m.orders {
		if existing.Number == o.Number {
			return apperr.ErrDuplicateOrderNumber
		}
	}
	o.ID = m.id()
	for i := range o.Items {
		o.Items[i].ID = m.id()
		o.Items[i].OrderID = o.ID
	}
	m.orders[o.ID] = cloneOrder(*o)
	m.writes++
	return nil
}

func (m *memStore) FindOrder(ctx context.Context, orderUUID uuid.UUID, customerID int64, _ bool) (*model.Order, error) {
	defer m.lock(ctx)()
	for _, o := range m.orders {
		if o.UUID == orderUUID && o.CustomerID == customerID {
			cp := cloneOrder(o)
			return &cp, nil
		}
	}
	return nil, apperr.ErrOrderNotFound
}

func (m *memStore) UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus, completedAt *time.Time) error {
	defer m.lock(ctx)()
	o, ok := m.orders[orderID]
	if !ok {
		return apperr.ErrOrderNotFound
	}
	o.Status = status
	if completedAt != nil {
		o.CompletedAt = completedAt
	}
	m.orders[orderID] = o
	m.writes++
	return nil
}

func (m *memStore) CreatePayment(ctx context.Context, p *model.Payment) error {
	defer m.lock(ctx)()
	p.ID = m.id()
	m.payments[p.ID] = *p
	m.writes++
	return nil
}

func (m *memStore) FindRetryablePayment(ctx context.Context, orderID int64, _ bool) (*model.Payment, error) {
	defer m.lock(ctx)()
	var found *model.Payment
	for _, p := range m.payments {
		if p.OrderID != orderID || !p.Retryable() {
			continue
		}
		if found == nil || p.AttemptNumber > found.AttemptNumber {
			cp := p
			found = &cp
		}
	}
	if found == nil {
		return nil, apperr.ErrOrderNotFound
	}
	return found, nil
}

func (m *memStore) UpdatePayment(ctx context.Context, p *model.Payment) error {
	defer m.lock(ctx)()
	if _, ok := m.payments[p.ID]; !ok {
		return apperr.ErrOrderNotFound
	}
	m.payments[p.ID] = *p
	m.writes++
	return nil
}

// Вспомогательные методы для тестов.

func (m *memStore) product(id int64) model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id]
}

func (m *memStore) order(id int64) model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneOrder(m.orders[id])
}

func (m *memStore) cart(id int64) model.Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneCart(m.carts[id])
}

func (m *memStore) paymentsFor(orderID int64) []model.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Payment
	for _, p := range m.payments {
		if p.OrderID == orderID {
			out = append(out, p)
		}
	}
	return out
}

func (m *memStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}
