package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ThreadLock serializa los envíos y ediciones sobre un mismo hilo.
type ThreadLock interface {
	// Acquire devuelve ErrThreadBusy si otro pipeline tiene el hilo.
	Acquire(ctx context.Context, threadID int64) (release func(), err error)
}

type memoryThreadLock struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

func NewMemoryThreadLock() ThreadLock {
	return &memoryThreadLock{held: make(map[int64]struct{})}
}

func (l *memoryThreadLock) Acquire(_ context.Context, threadID int64) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[threadID]; busy {
		return nil, fmt.Errorf("%w: thread %d", ErrThreadBusy, threadID)
	}
	l.held[threadID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, threadID)
			l.mu.Unlock()
		})
	}, nil
}

// Solo borra la llave si sigue siendo nuestra.
const redisUnlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

type redisLocker interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisThreadLock struct {
	client redisLocker
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisThreadLock comparte el lock entre réplicas. ttl acota cuánto puede
// quedar tomado un hilo si el proceso muere a mitad de pipeline.
func NewRedisThreadLock(client *redis.Client, ttl time.Duration, logger *zap.Logger) ThreadLock {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &redisThreadLock{
		client: client,
		ttl:    ttl,
		prefix: "chat:lock:",
		logger: logger,
	}
}

func (l *redisThreadLock) Acquire(ctx context.Context, threadID int64) (func(), error) {
	key := l.prefix + strconv.FormatInt(threadID, 10)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		// Fail-open: sin redis no bloqueamos el chat.
		l.logger.Warn("thread lock unavailable", zap.Int64("thread_id", threadID), zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, fmt.Errorf("%w: thread %d", ErrThreadBusy, threadID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, rcancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer rcancel()
			if err := l.client.Eval(rctx, redisUnlockScript, []string{key}, token).Err(); err != nil {
				l.logger.Warn("thread lock release failed", zap.Int64("thread_id", threadID), zap.Error(err))
			}
		})
	}, nil
}
