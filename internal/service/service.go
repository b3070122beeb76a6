// Package service реализует бизнес-логику интернет-магазина: корзину,
// оформление заказа, оплату с ограниченным числом попыток и карты покупателей.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/cartlock"
	"github.com/mmeshcher/storefront/internal/events"
	"github.com/mmeshcher/storefront/internal/gateway"
	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/tokenize"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
//
// Методы, вызванные внутри WithTx с переданным ей контекстом, выполняются
// в одной транзакции. Параметр forUpdate блокирует прочитанные строки до её завершения.
type Repository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateCustomer(ctx context.Context, c *model.Customer) error
	FindCustomerByID(ctx context.Context, id int64) (*model.Customer, error)
	FindCustomerByEmail(ctx context.Context, email string) (*model.Customer, error)
	FindCustomerByPhone(ctx context.Context, phone string) (*model.Customer, error)

	SearchProducts(ctx context.Context, query string, minStock int) ([]model.Product, error)
	FindActiveProduct(ctx context.Context, id int64) (*model.Product, error)
	FindProductForUpdate(ctx context.Context, id int64) (*model.Product, error)
	UpdateProductStock(ctx context.Context, id int64, stock int) error

	FindActiveCart(ctx context.Context, owner model.CartOwner, forUpdate bool) (*model.Cart, error)
	CreateCart(ctx context.Context, c *model.Cart) error
	SaveCartItem(ctx context.Context, item *model.CartItem) error
	UpdateCartTotals(ctx context.Context, c *model.Cart) error
	UpdateCartStatus(ctx context.Context, cartID int64, status model.CartStatus) error

	CreateCard(ctx context.Context, c *model.TokenizedCard) error
	FindCard(ctx context.Context, cardUUID uuid.UUID, customerID int64) (*model.TokenizedCard, error)
	FindCardByID(ctx context.Context, id int64) (*model.TokenizedCard, error)
	CardExists(ctx context.Context, customerID int64, lastFour, brand string) (bool, error)
	ListCards(ctx context.Context, customerID int64) ([]model.TokenizedCard, error)

	CreateOrder(ctx context.Context, o *model.Order) error
	FindOrder(ctx context.Context, orderUUID uuid.UUID, customerID int64, forUpdate bool) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status model.OrderStatus, completedAt *time.Time) error

	CreatePayment(ctx context.Context, p *model.Payment) error
	FindRetryablePayment(ctx context.Context, orderID int64, forUpdate bool) (*model.Payment, error)
	UpdatePayment(ctx context.Context, p *model.Payment) error
}

// Settings описывает бизнес-параметры, которые читает сервис.
type Settings interface {
	TaxRatePercent(ctx context.Context) float64
	MaxPaymentAttempts(ctx context.Context) int
	PaymentRejectionProbability(ctx context.Context) float64
	MinStockVisibility(ctx context.Context) int
	CartExpiration(ctx context.Context) time.Duration
}

// Tokenizer токенизирует данные карты.
type Tokenizer interface {
	Tokenize(ctx context.Context, req tokenize.Request) (*tokenize.Result, error)
}

// Gateway выполняет попытку списания.
type Gateway interface {
	Charge(ctx context.Context, c gateway.Charge) (*gateway.Decision, error)
}

// Encrypter шифрует чувствительные поля карты.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// Deps перечисляет зависимости сервиса.
type Deps struct {
	Repo      Repository
	Settings  Settings
	Tokenizer Tokenizer
	Gateway   Gateway
	Events    events.Publisher
	Locker    cartlock.Locker
	Encrypter Encrypter
	Logger    *zap.Logger
}

// Service содержит бизнес-логику магазина.
type Service struct {
	repo      Repository
	settings  Settings
	tokenizer Tokenizer
	gateway   Gateway
	events    events.Publisher
	locker    cartlock.Locker
	encrypter Encrypter
	logger    *zap.Logger
	now       func() time.Time
}

// NewService создаёт сервис с указанными зависимостями.
func NewService(d Deps) *Service {
	locker := d.Locker
	if locker == nil {
		locker = cartlock.NewLocal()
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:      d.Repo,
		settings:  d.Settings,
		tokenizer: d.Tokenizer,
		gateway:   d.Gateway,
		events:    d.Events,
		locker:    locker,
		encrypter: d.Encrypter,
		logger:    logger,
		now:       time.Now,
	}
}

// ClientInfo описывает источник запроса для журналов.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}
