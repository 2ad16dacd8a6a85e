package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"llm-chat/internal/metrics"
)

// WorkerPool acota cuántos pipelines de generación corren a la vez.
type WorkerPool struct {
	sem       *semaphore.Weighted
	size      int64
	queueWait time.Duration
	wg        sync.WaitGroup
}

func NewWorkerPool(size int, queueWait time.Duration) *WorkerPool {
	if size <= 0 {
		size = 16
	}
	if queueWait <= 0 {
		queueWait = 2 * time.Second
	}
	return &WorkerPool{
		sem:       semaphore.NewWeighted(int64(size)),
		size:      int64(size),
		queueWait: queueWait,
	}
}

// Ticket reserva un hueco del pool. Debe usarse con Go o liberarse con Release.
type Ticket struct {
	pool *WorkerPool
	once sync.Once
}

// Acquire espera hasta queueWait por un hueco libre; si no lo hay devuelve ErrPoolSaturated.
func (p *WorkerPool) Acquire(ctx context.Context) (*Ticket, error) {
	wctx, cancel := context.WithTimeout(ctx, p.queueWait)
	defer cancel()
	if err := p.sem.Acquire(wctx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %d workers busy", ErrPoolSaturated, p.size)
	}
	p.wg.Add(1)
	return &Ticket{pool: p}, nil
}

// Go ejecuta fn en una goroutine del pool y libera el hueco al terminar.
func (t *Ticket) Go(fn func()) {
	metrics.InflightPipelines.Inc()
	go func() {
		defer t.Release()
		defer metrics.InflightPipelines.Dec()
		fn()
	}()
}

func (t *Ticket) Release() {
	t.once.Do(func() {
		t.pool.sem.Release(1)
		t.pool.wg.Done()
	})
}

// Wait bloquea hasta que terminan todos los pipelines en curso (apagado ordenado).
func (p *WorkerPool) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
