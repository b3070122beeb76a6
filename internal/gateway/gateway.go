// Package gateway содержит клиенты платёжного шлюза: встроенный имитатор
// и HTTP-клиент внешнего шлюза.
package gateway

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeclineReason содержит причину отказа, которую возвращает имитатор.
const DeclineReason = "Fondos insuficientes (Rechazo simulado)"

// Charge описывает запрос на списание.
type Charge struct {
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
	CardToken   string
	// RejectionProbability учитывается только имитатором.
	RejectionProbability float64
}

// Decision содержит ответ шлюза по одной попытке.
type Decision struct {
	Approved      bool
	TransactionID string
	Reason        string
}

// Simulator имитирует платёжный шлюз: блокирующий вызов с задержкой
// и случайным отказом.
type Simulator struct {
	delay time.Duration
	rand  func() float64
}

// NewSimulator создаёт имитатор с указанной задержкой ответа.
func NewSimulator(delay time.Duration) *Simulator {
	return &Simulator{delay: delay, rand: rand.Float64}
}

// WithRand подменяет источник случайных чисел.
func (s *Simulator) WithRand(fn func() float64) *Simulator {
	s.rand = fn
	return s
}

// Charge выполняет попытку списания. Вызов блокируется на время задержки
// и не прерывается отменой контекста.
func (s *Simulator) Charge(_ context.Context, c Charge) (*Decision, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	if s.rand() < c.RejectionProbability {
		return &Decision{Reason: DeclineReason}, nil
	}

	return &Decision{
		Approved:      true,
		TransactionID: "txn_" + uuid.NewString()[:12],
	}, nil
}
