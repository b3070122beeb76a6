// Package cartlock сериализует изменения корзины одного владельца.
//
// Redis-реализация работает между несколькими экземплярами сервиса,
// Local работает в пределах одного процесса.
package cartlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotAcquired возвращается, если блокировку не удалось получить за отведённое число попыток.
var ErrNotAcquired = errors.New("cart lock not acquired")

// Locker выдаёт эксклюзивную блокировку по ключу.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

const (
	defaultTTL        = 10 * time.Second
	defaultRetries    = 50
	defaultRetryDelay = 100 * time.Millisecond
)

// unlockScript удаляет ключ, только если он всё ещё принадлежит владельцу блокировки.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis реализует блокировку на основе SET NX с TTL.
type Redis struct {
	rdb        *redis.Client
	ttl        time.Duration
	retries    int
	retryDelay time.Duration
}

// NewRedis создаёт блокировку поверх клиента Redis.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{
		rdb:        rdb,
		ttl:        defaultTTL,
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
	}
}

// Lock захватывает ключ cart_lock:<key>.
func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	lockKey := "cart_lock:" + key
	token := uuid.NewString()

	for i := 0; i < r.retries; i++ {
		acquired, err := r.rdb.SetNX(ctx, lockKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("redis lock error: %w", err)
		}
		if acquired {
			return func() {
				// Освобождение не должно зависеть от отменённого контекста запроса.
				_ = unlockScript.Run(context.WithoutCancel(ctx), r.rdb, []string{lockKey}, token).Err()
			}, nil
		}

		timer := time.NewTimer(r.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return nil, ErrNotAcquired
}

// Local хранит блокировки в памяти процесса.
type Local struct {
	mu    sync.Mutex
	locks map[string]*localLock
}

type localLock struct {
	ch   chan struct{}
	refs int
}

// NewLocal создаёт блокировку в памяти.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*localLock)}
}

// Lock захватывает ключ или ждёт его освобождения до отмены ctx.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[key]
	if !ok {
		lk = &localLock{ch: make(chan struct{}, 1)}
		l.locks[key] = lk
	}
	lk.refs++
	l.mu.Unlock()

	select {
	case lk.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, lk)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-lk.ch
			l.release(key, lk)
		})
	}, nil
}

func (l *Local) release(key string, lk *localLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, key)
	}
}
