// Package events реализует внутрипроцессную шину доменных событий.
//
// Публикация обычно не блокирует вызывающего: событие кладётся в буферизованный
// канал, а доставка подписчикам выполняется отдельной горутиной Run.
package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event описывает доменное событие.
type Event interface {
	EventName() string
}

// PaymentSucceeded публикуется после фиксации одобренного платежа.
type PaymentSucceeded struct {
	CustomerID    int64
	CustomerEmail string
	OrderID       int64
	PaymentID     int64
	OrderNumber   string
}

func (PaymentSucceeded) EventName() string { return "payment.succeeded" }

// PaymentFailed публикуется, когда исчерпаны все попытки оплаты.
type PaymentFailed struct {
	CustomerID    int64
	CustomerEmail string
	OrderID       int64
	PaymentID     int64
	OrderNumber   string
	FailureReason string
}

func (PaymentFailed) EventName() string { return "payment.failed" }

// ProductSearched публикуется после каждого поискового запроса.
type ProductSearched struct {
	CustomerID   *int64
	Query        string
	ResultsCount int
	IPAddress    string
	UserAgent    string
	SearchedAt   time.Time
}

func (ProductSearched) EventName() string { return "product.searched" }

// RequestCompleted публикуется после обработки каждого HTTP-запроса.
type RequestCompleted struct {
	Method       string
	Endpoint     string
	StatusCode   int
	CustomerID   *int64
	IPAddress    string
	UserAgent    string
	Duration     time.Duration
	ErrorMessage string
	CompletedAt  time.Time
}

func (RequestCompleted) EventName() string { return "request.completed" }

// Publisher публикует события.
type Publisher interface {
	Publish(e Event)
}

// Handler обрабатывает событие.
type Handler func(ctx context.Context, e Event)

// DefaultBufferSize задаёт ёмкость очереди событий по умолчанию.
const DefaultBufferSize = 1024

// DefaultGuaranteedWait ограничивает ожидание места в очереди событий оплаты.
const DefaultGuaranteedWait = 5 * time.Second

// Bus доставляет события подписчикам асинхронно.
//
// События оплаты идут через отдельную очередь и не теряются: если она
// заполнена дольше guaranteedWait или шина уже остановлена, событие
// доставляется синхронно в горутине публикующего.
type Bus struct {
	mu             sync.RWMutex
	stopped        bool
	queue          chan Event
	guaranteed     chan Event
	guaranteedWait time.Duration
	handlers       []Handler
	logger         *zap.Logger
}

// NewBus создаёт шину с очередями указанной ёмкости.
func NewBus(size int, logger *zap.Logger) *Bus {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Bus{
		queue:          make(chan Event, size),
		guaranteed:     make(chan Event, size),
		guaranteedWait: DefaultGuaranteedWait,
		logger:         logger,
	}
}

// Subscribe добавляет обработчик. Вызывается до Run.
func (b *Bus) Subscribe(h Handler) {
	b.handlers = append(b.handlers, h)
}

func mustDeliver(e Event) bool {
	switch e.(type) {
	case PaymentSucceeded, PaymentFailed:
		return true
	}
	return false
}

// Publish ставит событие в очередь. Журнальные события при заполненной
// очереди или после остановки шины отбрасываются.
func (b *Bus) Publish(e Event) {
	if mustDeliver(e) {
		b.publishGuaranteed(e)
		return
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.stopped {
		b.logger.Warn("event bus stopped, event dropped", zap.String("event", e.EventName()))
		return
	}
	select {
	case b.queue <- e:
	default:
		b.logger.Error("event queue is full, event dropped", zap.String("event", e.EventName()))
	}
}

func (b *Bus) publishGuaranteed(e Event) {
	if b.enqueueGuaranteed(e) {
		return
	}
	b.logger.Warn("delivering event synchronously", zap.String("event", e.EventName()))
	b.dispatch(context.Background(), e)
}

func (b *Bus) enqueueGuaranteed(e Event) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.stopped {
		return false
	}

	timer := time.NewTimer(b.guaranteedWait)
	defer timer.Stop()

	select {
	case b.guaranteed <- e:
		return true
	case <-timer.C:
		return false
	}
}

// Run доставляет события подписчикам до отмены ctx, затем доставляет
// оставшиеся в очередях события и завершается. После возврата Run
// события оплаты доставляются синхронно.
func (b *Bus) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			b.stopped = true
			b.mu.Unlock()

			b.drain()
			return nil
		case e := <-b.guaranteed:
			b.dispatch(ctx, e)
		case e := <-b.queue:
			b.dispatch(ctx, e)
		}
	}
}

func (b *Bus) drain() {
	ctx := context.Background()
	for {
		select {
		case e := <-b.guaranteed:
			b.dispatch(ctx, e)
		case e := <-b.queue:
			b.dispatch(ctx, e)
		default:
			return
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, e Event) {
	for _, h := range b.handlers {
		b.safeCall(ctx, h, e)
	}
}

func (b *Bus) safeCall(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", zap.String("event", e.EventName()), zap.Any("panic", r))
		}
	}()
	h(ctx, e)
}
