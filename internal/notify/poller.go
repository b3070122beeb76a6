package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mmeshcher/storefront/internal/mailer"
	"github.com/mmeshcher/storefront/internal/model"
)

const pollBatchSize = 100

// Poller отправляет письма из очереди с ограниченным числом повторов.
type Poller struct {
	repo   Repository
	sender mailer.Sender
	logger *zap.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewPoller создаёт обработчик очереди писем.
func NewPoller(repo Repository, sender mailer.Sender, logger *zap.Logger) *Poller {
	return &Poller{repo: repo, sender: sender, logger: logger, now: time.Now}
}

// Run запускает цикл опроса очереди с указанным интервалом и блокируется до отмены ctx.
func (p *Poller) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := p.Poll(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("email poll failed", zap.Error(err))
			}
		}
	}
}

// Poll обрабатывает одну пачку писем. Параллельные вызовы не запускают
// второй цикл, а получают результат текущего.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	v, err, _ := p.group.Do("poll", func() (any, error) {
		return p.poll(ctx)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (p *Poller) poll(ctx context.Context) (int, error) {
	pending, err := p.repo.ListPendingEmailNotifications(ctx, pollBatchSize)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	p.logger.Info("processing pending emails", zap.Int("count", len(pending)))

	for i := range pending {
		p.deliver(ctx, &pending[i])
	}
	return len(pending), nil
}

func (p *Poller) deliver(ctx context.Context, n *model.EmailNotification) {
	err := p.sender.Send(ctx, n.To, n.Subject, n.Body)
	if err == nil {
		now := p.now()
		n.Status = model.EmailStatusSent
		n.SentAt = &now
		n.ErrorMessage = ""
		p.logger.Info("email sent", zap.Int64("id", n.ID), zap.String("to", n.To))
	} else {
		n.RetryCount++
		n.ErrorMessage = err.Error()
		if n.RetryCount >= n.MaxRetries {
			n.Status = model.EmailStatusFailed
			p.logger.Error("email delivery failed permanently",
				zap.Int64("id", n.ID), zap.String("to", n.To), zap.Int("attempts", n.RetryCount), zap.Error(err))
		} else {
			n.Status = model.EmailStatusPending
			p.logger.Warn("email delivery failed",
				zap.Int64("id", n.ID), zap.Int("attempt", n.RetryCount), zap.Int("maxRetries", n.MaxRetries), zap.Error(err))
		}
	}

	if err := p.repo.UpdateEmailNotification(ctx, n); err != nil {
		p.logger.Error("update email notification failed", zap.Int64("id", n.ID), zap.Error(err))
	}
}
