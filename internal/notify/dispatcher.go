// Package notify ставит письма о результатах оплаты в очередь и отправляет их в фоне.
package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/events"
	"github.com/mmeshcher/storefront/internal/model"
)

// Repository описывает хранилище очереди писем.
type Repository interface {
	CreateEmailNotification(ctx context.Context, n *model.EmailNotification) error
	ListPendingEmailNotifications(ctx context.Context, limit int) ([]model.EmailNotification, error)
	UpdateEmailNotification(ctx context.Context, n *model.EmailNotification) error
}

// Settings описывает источник лимита повторных отправок.
type Settings interface {
	EmailMaxRetries(ctx context.Context) int
}

// Dispatcher превращает события оплаты в письма, ожидающие отправки.
type Dispatcher struct {
	repo     Repository
	settings Settings
	logger   *zap.Logger
}

// NewDispatcher создаёт обработчик событий оплаты.
func NewDispatcher(repo Repository, settings Settings, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, settings: settings, logger: logger}
}

// Handle сохраняет письмо для событий PaymentSucceeded и PaymentFailed.
// Ошибки только логируются.
func (d *Dispatcher) Handle(ctx context.Context, e events.Event) {
	var n *model.EmailNotification

	switch ev := e.(type) {
	case events.PaymentSucceeded:
		n = &model.EmailNotification{
			CustomerID: ev.CustomerID,
			OrderID:    ev.OrderID,
			PaymentID:  ev.PaymentID,
			To:         ev.CustomerEmail,
			Subject:    "¡Tu pago ha sido aprobado! Pedido #" + ev.OrderNumber,
			Body:       successBody(ev.OrderNumber),
			Type:       model.EmailTypePaymentSuccess,
		}
	case events.PaymentFailed:
		n = &model.EmailNotification{
			CustomerID: ev.CustomerID,
			OrderID:    ev.OrderID,
			PaymentID:  ev.PaymentID,
			To:         ev.CustomerEmail,
			Subject:    "Problema con tu pago para el pedido #" + ev.OrderNumber,
			Body:       failureBody(ev.OrderNumber, ev.FailureReason),
			Type:       model.EmailTypePaymentFailed,
		}
	default:
		return
	}

	n.UUID = uuid.New()
	n.Status = model.EmailStatusPending
	n.RetryCount = 0
	n.MaxRetries = d.settings.EmailMaxRetries(ctx)

	if err := d.repo.CreateEmailNotification(ctx, n); err != nil {
		d.logger.Error("enqueue email notification failed",
			zap.String("type", string(n.Type)), zap.Int64("orderID", n.OrderID), zap.Error(err))
		return
	}

	d.logger.Info("email notification enqueued",
		zap.String("type", string(n.Type)), zap.Int64("orderID", n.OrderID))
}

func successBody(orderNumber string) string {
	return fmt.Sprintf("<p>Hola,</p>"+
		"<p>¡Buenas noticias! Tu pago para el pedido <strong>#%s</strong> ha sido aprobado.</p>"+
		"<p>Pronto estaremos preparando tu envío.</p>"+
		"<p>Gracias,<br>El equipo de Storefront</p>",
		html.EscapeString(orderNumber))
}

func failureBody(orderNumber, reason string) string {
	return fmt.Sprintf("<p>Hola,</p>"+
		"<p>Tuvimos un problema al procesar tu pago para el pedido <strong>#%s</strong>.</p>"+
		"<p><strong>Motivo del fallo:</strong> %s</p>"+
		"<p>Por favor, revisa tus datos de pago e inténtalo de nuevo.</p>"+
		"<p>Gracias,<br>El equipo de Storefront</p>",
		html.EscapeString(orderNumber), html.EscapeString(reason))
}
