package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/storefront/internal/events"
	"github.com/mmeshcher/storefront/internal/model"
)

type memRepo struct {
	mu        sync.Mutex
	nextID    int64
	items     map[int64]model.EmailNotification
	createErr error
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[int64]model.EmailNotification)}
}

func (r *memRepo) CreateEmailNotification(ctx context.Context, n *model.EmailNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Unix(r.nextID, 0)
	r.items[n.ID] = *n
	return nil
}

func (r *memRepo) ListPendingEmailNotifications(ctx context.Context, limit int) ([]model.EmailNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []model.EmailNotification
	for _, n := range r.items {
		if n.Status == model.EmailStatusPending && n.RetryCount < n.MaxRetries {
			res = append(res, n)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (r *memRepo) UpdateEmailNotification(ctx context.Context, n *model.EmailNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[n.ID] = *n
	return nil
}

func (r *memRepo) get(id int64) model.EmailNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id]
}

type maxRetries int

func (m maxRetries) EmailMaxRetries(ctx context.Context) int { return int(m) }

type stubSender struct {
	mu    sync.Mutex
	fail  map[string]error
	sent  []string
	calls atomic.Int32
	block chan struct{}
}

func (s *stubSender) Send(ctx context.Context, to, subject, body string) error {
	s.calls.Add(1)
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[to]; err != nil {
		return err
	}
	s.sent = append(s.sent, to)
	return nil
}

func TestDispatcher_EnqueuesPaymentEmails(t *testing.T) {
	repo := newMemRepo()
	d := NewDispatcher(repo, maxRetries(3), zap.NewNop())

	d.Handle(context.Background(), events.PaymentSucceeded{
		CustomerID: 1, CustomerEmail: "ana@example.com", OrderID: 10, PaymentID: 20, OrderNumber: "ORD-ABCD1234",
	})
	d.Handle(context.Background(), events.PaymentFailed{
		CustomerID: 2, CustomerEmail: "luis@example.com", OrderID: 11, PaymentID: 21,
		OrderNumber: "ORD-EFGH5678", FailureReason: "Máximos intentos de pago alcanzados.",
	})
	d.Handle(context.Background(), events.ProductSearched{Query: "aspirina"})

	require.Len(t, repo.items, 2)

	ok := repo.get(1)
	assert.Equal(t, model.EmailTypePaymentSuccess, ok.Type)
	assert.Equal(t, model.EmailStatusPending, ok.Status)
	assert.Equal(t, 0, ok.RetryCount)
	assert.Equal(t, 3, ok.MaxRetries)
	assert.Equal(t, "ana@example.com", ok.To)
	assert.Contains(t, ok.Subject, "ORD-ABCD1234")
	assert.Contains(t, ok.Body, "ha sido aprobado")

	failed := repo.get(2)
	assert.Equal(t, model.EmailTypePaymentFailed, failed.Type)
	assert.Equal(t, int64(21), failed.PaymentID)
	assert.Contains(t, failed.Body, "Máximos intentos de pago alcanzados.")
}

func TestDispatcher_SwallowsStoreErrors(t *testing.T) {
	repo := newMemRepo()
	repo.createErr = errors.New("db down")
	d := NewDispatcher(repo, maxRetries(3), zap.NewNop())

	assert.NotPanics(t, func() {
		d.Handle(context.Background(), events.PaymentSucceeded{OrderID: 1})
	})
}

func enqueue(t *testing.T, repo *memRepo, to string, retryCount, max int) int64 {
	t.Helper()
	n := &model.EmailNotification{
		To: to, Subject: "s", Body: "b",
		Status: model.EmailStatusPending, RetryCount: retryCount, MaxRetries: max,
	}
	require.NoError(t, repo.CreateEmailNotification(context.Background(), n))
	return n.ID
}

func TestPoller_DeliversAndRetries(t *testing.T) {
	repo := newMemRepo()
	okID := enqueue(t, repo, "ok@example.com", 0, 3)
	retryID := enqueue(t, repo, "flaky@example.com", 0, 3)
	lastID := enqueue(t, repo, "dead@example.com", 2, 3)

	sender := &stubSender{fail: map[string]error{
		"flaky@example.com": errors.New("421 try later"),
		"dead@example.com":  errors.New("550 mailbox unavailable"),
	}}
	p := NewPoller(repo, sender, zap.NewNop())

	n, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ok := repo.get(okID)
	assert.Equal(t, model.EmailStatusSent, ok.Status)
	assert.NotNil(t, ok.SentAt)
	assert.Empty(t, ok.ErrorMessage)

	retry := repo.get(retryID)
	assert.Equal(t, model.EmailStatusPending, retry.Status)
	assert.Equal(t, 1, retry.RetryCount)
	assert.Equal(t, "421 try later", retry.ErrorMessage)

	last := repo.get(lastID)
	assert.Equal(t, model.EmailStatusFailed, last.Status)
	assert.Equal(t, 3, last.RetryCount)

	n, err = p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only the retryable email is picked up again")
}

func TestPoller_SkipsExhaustedEmails(t *testing.T) {
	repo := newMemRepo()
	enqueue(t, repo, "a@example.com", 3, 3)

	sender := &stubSender{}
	n, err := NewPoller(repo, sender, zap.NewNop()).Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, int32(0), sender.calls.Load())
}

func TestPoller_ConcurrentPollsDoNotOverlap(t *testing.T) {
	repo := newMemRepo()
	enqueue(t, repo, "a@example.com", 0, 3)

	sender := &stubSender{block: make(chan struct{})}
	p := NewPoller(repo, sender, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.Poll(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return sender.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(sender.block)
	wg.Wait()

	assert.LessOrEqual(t, sender.calls.Load(), int32(2))
	assert.Equal(t, model.EmailStatusSent, repo.get(1).Status)
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	repo := newMemRepo()
	enqueue(t, repo, "a@example.com", 0, 3)
	sender := &stubSender{}
	p := NewPoller(repo, sender, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, 10*time.Millisecond) }()

	require.Eventually(t, func() bool { return repo.get(1).Status == model.EmailStatusSent }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
