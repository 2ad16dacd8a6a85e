package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestMemoryThreadLock(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryThreadLock()

	release, err := l.Acquire(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := l.Acquire(ctx, 1); !errors.Is(err, ErrThreadBusy) {
		t.Fatalf("expected ErrThreadBusy, got %v", err)
	}
	other, err := l.Acquire(ctx, 2)
	if err != nil {
		t.Fatalf("other threads are independent: %v", err)
	}
	other()

	release()
	release()
	again, err := l.Acquire(ctx, 1)
	if err != nil {
		t.Fatalf("expected lock free after release: %v", err)
	}
	again()
}

type mockRedisLocker struct {
	setOK     bool
	setErr    error
	lastKey   string
	lastValue interface{}
	lastTTL   time.Duration
	evalKeys  []string
	evalArgs  []interface{}
	evalCalls int
}

func (m *mockRedisLocker) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	m.lastKey = key
	m.lastValue = value
	m.lastTTL = expiration
	cmd := redis.NewBoolCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	cmd.SetVal(m.setOK)
	return cmd
}

func (m *mockRedisLocker) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	m.evalCalls++
	m.evalKeys = keys
	m.evalArgs = args
	cmd := redis.NewCmd(ctx)
	cmd.SetVal(int64(1))
	return cmd
}

func TestRedisThreadLock(t *testing.T) {
	ctx := context.Background()
	newLock := func(m *mockRedisLocker) *redisThreadLock {
		return &redisThreadLock{client: m, ttl: time.Minute, prefix: "chat:lock:", logger: zap.NewNop()}
	}

	t.Run("acquire and release with token", func(t *testing.T) {
		m := &mockRedisLocker{setOK: true}
		release, err := newLock(m).Acquire(ctx, 42)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if m.lastKey != "chat:lock:42" || m.lastTTL != time.Minute {
			t.Fatalf("unexpected SETNX call key=%q ttl=%v", m.lastKey, m.lastTTL)
		}
		release()
		release()
		if m.evalCalls != 1 {
			t.Fatalf("expected single unlock, got %d", m.evalCalls)
		}
		if len(m.evalKeys) != 1 || m.evalKeys[0] != "chat:lock:42" {
			t.Fatalf("unexpected unlock keys %+v", m.evalKeys)
		}
		if len(m.evalArgs) != 1 || m.evalArgs[0] != m.lastValue {
			t.Fatalf("unlock must present the acquire token, got %+v", m.evalArgs)
		}
	})

	t.Run("held elsewhere", func(t *testing.T) {
		m := &mockRedisLocker{setOK: false}
		if _, err := newLock(m).Acquire(ctx, 42); !errors.Is(err, ErrThreadBusy) {
			t.Fatalf("expected ErrThreadBusy, got %v", err)
		}
	})

	t.Run("redis error fail-open", func(t *testing.T) {
		m := &mockRedisLocker{setErr: errors.New("redis down")}
		release, err := newLock(m).Acquire(ctx, 42)
		if err != nil {
			t.Fatalf("expected fail-open, got %v", err)
		}
		release()
		if m.evalCalls != 0 {
			t.Fatalf("nothing to unlock when redis failed")
		}
	})
}
