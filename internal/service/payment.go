package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/apperr"
	"github.com/mmeshcher/storefront/internal/events"
	"github.com/mmeshcher/storefront/internal/gateway"
	"github.com/mmeshcher/storefront/internal/model"
)

const maxAttemptsReason = "Máximos intentos de pago alcanzados."

// ProcessOrderPayment выполняет очередную попытку оплаты заказа.
//
// Попытка проходит в две транзакции: первая переводит платёж в PROCESSING,
// вторая сохраняет ответ шлюза. Пока идёт вызов шлюза, параллельная попытка
// по тому же заказу не находит платежа, ожидающего оплаты.
//
// При отказе шлюза возвращается ошибка ErrPayment, но состояние платежа
// и заказа к этому моменту уже сохранено.
func (s *Service) ProcessOrderPayment(ctx context.Context, customerID int64, orderUUID uuid.UUID) (*model.Payment, error) {
	customer, err := s.repo.FindCustomerByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("find customer: %w", err)
	}

	var (
		payment    *model.Payment
		ord        *model.Order
		cardToken  string
		prevStatus model.PaymentStatus
	)
	err = s.repo.WithTx(ctx, func(ctx context.Context) error {
		var err error
		ord, err = s.repo.FindOrder(ctx, orderUUID, customerID, true)
		if err != nil {
			if errors.Is(err, apperr.ErrOrderNotFound) {
				return apperr.New(apperr.ErrOrderNotFound, "Orden no encontrada o no pertenece al usuario.")
			}
			return err
		}

		switch ord.Status {
		case model.OrderStatusPaid:
			return apperr.New(apperr.ErrPayment, "Esta orden ya ha sido pagada.")
		case model.OrderStatusPaymentFailed:
			return apperr.New(apperr.ErrPayment, "Esta orden ya ha fallado todos los intentos de pago.")
		}

		payment, err = s.repo.FindRetryablePayment(ctx, ord.ID, true)
		if err != nil {
			if errors.Is(err, apperr.ErrOrderNotFound) {
				return apperr.New(apperr.ErrOrderNotFound, "No se encontró un pago pendiente para esta orden.")
			}
			return err
		}

		card, err := s.repo.FindCardByID(ctx, payment.CardID)
		if err != nil {
			return fmt.Errorf("find payment card: %w", err)
		}
		cardToken = card.Token

		prevStatus = payment.Status
		payment.Status = model.PaymentStatusProcessing
		if err := s.repo.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		return s.repo.UpdateOrderStatus(ctx, ord.ID, model.OrderStatusPaymentProcessing, nil)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("processing payment",
		zap.String("orderNumber", ord.Number),
		zap.Int("attempt", payment.AttemptNumber),
		zap.Int("maxAttempts", payment.MaxAttempts),
	)

	decision, gwErr := s.gateway.Charge(ctx, gateway.Charge{
		OrderNumber:          ord.Number,
		Amount:               payment.Amount,
		Currency:             payment.Currency,
		CardToken:            cardToken,
		RejectionProbability: s.settings.PaymentRejectionProbability(ctx),
	})

	// Результат попытки сохраняется даже если клиент уже отключился.
	ctx = context.WithoutCancel(ctx)

	if gwErr != nil {
		if err := s.restorePayment(ctx, payment, ord, prevStatus); err != nil {
			s.logger.Error("restore payment after gateway error", zap.Error(err), zap.String("orderNumber", ord.Number))
		}
		return nil, fmt.Errorf("charge payment: %w", gwErr)
	}

	if decision.Approved {
		return s.approvePayment(ctx, customer, ord, payment, decision)
	}
	return s.declinePayment(ctx, customer, ord, payment, decision.Reason)
}

func (s *Service) approvePayment(ctx context.Context, customer *model.Customer, ord *model.Order, payment *model.Payment, decision *gateway.Decision) (*model.Payment, error) {
	now := s.now()
	payment.Status = model.PaymentStatusApproved
	payment.TransactionID = decision.TransactionID
	payment.ProcessedAt = &now
	payment.FailureReason = ""

	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		return s.repo.UpdateOrderStatus(ctx, ord.ID, model.OrderStatusPaid, &now)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment approved", zap.String("orderNumber", ord.Number), zap.String("transactionID", payment.TransactionID))
	s.events.Publish(events.PaymentSucceeded{
		CustomerID:    customer.ID,
		CustomerEmail: customer.Email,
		OrderID:       ord.ID,
		PaymentID:     payment.ID,
		OrderNumber:   ord.Number,
	})
	return payment, nil
}

func (s *Service) declinePayment(ctx context.Context, customer *model.Customer, ord *model.Order, payment *model.Payment, reason string) (*model.Payment, error) {
	now := s.now()
	payment.FailureReason = reason
	payment.ProcessedAt = &now
	payment.AttemptNumber++

	orderStatus := model.OrderStatusPending
	payment.Status = model.PaymentStatusDeclined
	exhausted := payment.AttemptNumber >= payment.MaxAttempts
	if exhausted {
		payment.Status = model.PaymentStatusFailed
		orderStatus = model.OrderStatusPaymentFailed
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		return s.repo.UpdateOrderStatus(ctx, ord.ID, orderStatus, nil)
	})
	if err != nil {
		return nil, err
	}

	if exhausted {
		s.logger.Error("payment failed, attempts exhausted", zap.String("orderNumber", ord.Number))
		s.events.Publish(events.PaymentFailed{
			CustomerID:    customer.ID,
			CustomerEmail: customer.Email,
			OrderID:       ord.ID,
			PaymentID:     payment.ID,
			OrderNumber:   ord.Number,
			FailureReason: maxAttemptsReason,
		})
	} else {
		s.logger.Warn("payment declined", zap.String("orderNumber", ord.Number), zap.String("reason", reason))
	}

	return nil, apperr.New(apperr.ErrPayment, "Pago %s. (Intento %d/%d). Motivo: %s",
		payment.Status, payment.AttemptNumber, payment.MaxAttempts, reason)
}

// restorePayment возвращает платёж и заказ в состояние до попытки,
// если шлюз не дал ответа.
func (s *Service) restorePayment(ctx context.Context, payment *model.Payment, ord *model.Order, prev model.PaymentStatus) error {
	payment.Status = prev
	return s.repo.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdatePayment(ctx, payment); err != nil {
			return err
		}
		return s.repo.UpdateOrderStatus(ctx, ord.ID, model.OrderStatusPending, nil)
	})
}
