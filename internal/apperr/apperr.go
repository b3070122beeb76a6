// Package apperr описывает таксономию ошибок предметной области.
//
// Каждая ошибка принадлежит одному виду (Kind). Вид определяет, как ошибку
// видит клиент, и меняла ли операция состояние до её возврата: ошибки вида
// KindRejected возвращаются уже после фиксации изменений.
package apperr

import (
	"errors"
	"fmt"
)

// Kind определяет вид ошибки.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindRejected
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindRejected:
		return "rejected"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// sentinel задаёт базовую ошибку с фиксированным видом.
type sentinel struct {
	kind Kind
	name string
}

func (s *sentinel) Error() string { return s.name }

func newSentinel(kind Kind, name string) error {
	return &sentinel{kind: kind, name: name}
}

var (
	ErrCartNotFound      = newSentinel(KindNotFound, "cart not found")
	ErrProductNotFound   = newSentinel(KindNotFound, "product not found")
	ErrOrderNotFound     = newSentinel(KindNotFound, "order not found")
	ErrCardNotFound      = newSentinel(KindNotFound, "card not found")
	ErrCustomerNotFound  = newSentinel(KindNotFound, "customer not found")
	ErrConfigKeyNotFound = newSentinel(KindNotFound, "config key not found")

	ErrInsufficientStock     = newSentinel(KindConflict, "insufficient stock")
	ErrCardAlreadyExists     = newSentinel(KindConflict, "card already exists")
	ErrCustomerAlreadyExists = newSentinel(KindConflict, "customer already exists")
	// ErrDuplicateOrderNumber означает, что номер заказа уже занят.
	ErrDuplicateOrderNumber = newSentinel(KindConflict, "duplicate order number")

	ErrInvalidCardData     = newSentinel(KindValidation, "invalid card data")
	ErrInvalidConfigValue  = newSentinel(KindValidation, "invalid config value")
	ErrSearchQueryTooShort = newSentinel(KindValidation, "search query too short")
	ErrInvalidInput        = newSentinel(KindValidation, "invalid input")

	// ErrPayment означает отказ в оплате. Состояние платежа и заказа уже сохранено.
	ErrPayment = newSentinel(KindRejected, "payment rejected")
	// ErrTokenization означает отказ провайдера токенизации.
	ErrTokenization = newSentinel(KindRejected, "tokenization rejected")

	ErrInvalidCredentials = newSentinel(KindUnauthorized, "invalid credentials")
)

// Error описывает ошибку предметной области с сообщением для клиента.
type Error struct {
	base    error
	message string
}

// New создаёт ошибку вида base с отформатированным сообщением.
func New(base error, format string, args ...any) error {
	return &Error{base: base, message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string { return e.message }

func (e *Error) Unwrap() error { return e.base }

// KindOf возвращает вид ошибки. Неизвестные ошибки считаются внутренними.
func KindOf(err error) Kind {
	var s *sentinel
	if errors.As(err, &s) {
		return s.kind
	}
	return KindInternal
}

// Message возвращает сообщение, которое можно показать клиенту.
// Для внутренних ошибок подробности не раскрываются.
func Message(err error) string {
	if KindOf(err) == KindInternal {
		return "internal server error"
	}
	return err.Error()
}
