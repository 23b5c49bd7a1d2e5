package generator

import (
	"context"
	"sync"
)

// Limiter 按模型限制并发调用
type Limiter interface {
	Acquire(ctx context.Context, key string) error
	Release(ctx context.Context, key string)
}

// ConcurrencyLimiter 进程内的并发限制器，每个模型一个信号量
type ConcurrencyLimiter struct {
	maxConcurrent int

	mu         sync.Mutex
	semaphores map[string]chan struct{}
}

// NewConcurrencyLimiter 创建并发限制器
func NewConcurrencyLimiter(maxConcurrent int) *ConcurrencyLimiter {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &ConcurrencyLimiter{
		maxConcurrent: maxConcurrent,
		semaphores:    make(map[string]chan struct{}),
	}
}

func (cl *ConcurrencyLimiter) semaphore(key string) chan struct{} {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	sem, ok := cl.semaphores[key]
	if !ok {
		sem = make(chan struct{}, cl.maxConcurrent)
		cl.semaphores[key] = sem
	}
	return sem
}

// Acquire 获取并发槽位
func (cl *ConcurrencyLimiter) Acquire(ctx context.Context, key string) error {
	select {
	case cl.semaphore(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release 释放并发槽位
func (cl *ConcurrencyLimiter) Release(ctx context.Context, key string) {
	select {
	case <-cl.semaphore(key):
	default:
	}
}
