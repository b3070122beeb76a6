package model

import (
	"time"

	"github.com/google/uuid"
)

// EmailStatus описывает состояние письма в очереди отправки.
type EmailStatus string

const (
	EmailStatusPending   EmailStatus = "PENDING"
	EmailStatusSent      EmailStatus = "SENT"
	EmailStatusFailed    EmailStatus = "FAILED"
	EmailStatusCancelled EmailStatus = "CANCELLED"
)

// EmailType описывает повод отправки письма.
type EmailType string

const (
	EmailTypePaymentSuccess    EmailType = "PAYMENT_SUCCESS"
	EmailTypePaymentFailed     EmailType = "PAYMENT_FAILED"
	EmailTypeOrderConfirmation EmailType = "ORDER_CONFIRMATION"
	EmailTypeWelcome           EmailType = "WELCOME"
)

// EmailNotification описывает письмо, ожидающее отправки фоновым обработчиком.
type EmailNotification struct {
	ID           int64
	UUID         uuid.UUID
	CustomerID   int64
	OrderID      int64
	PaymentID    int64
	To           string
	Subject      string
	Body         string
	Type         EmailType
	Status       EmailStatus
	RetryCount   int
	MaxRetries   int
	SentAt       *time.Time
	ErrorMessage string
	CreatedAt    time.Time
}
