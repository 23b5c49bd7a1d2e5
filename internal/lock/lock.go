package lock

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Distributed 跨实例的锁，由 redislock.Locker 实现
type Distributed interface {
	Acquire(ctx context.Context, key string) (string, error)
	Release(ctx context.Context, key, token string) error
}

type entry struct {
	ch   chan struct{}
	refs int
}

// ItemLocker 按数据ID加锁的临界区
//
// 进程内使用按键的互斥锁；配置了 Redis 时再叠加一把分布式锁，保证多实例下同一数据串行处理。
type ItemLocker struct {
	mu      sync.Mutex
	entries map[uint]*entry

	redis  Distributed
	logger logrus.FieldLogger
}

// NewItemLocker 创建锁，redis 可以为空
func NewItemLocker(redis Distributed, logger logrus.FieldLogger) *ItemLocker {
	return &ItemLocker{
		entries: make(map[uint]*entry),
		redis:   redis,
		logger:  logger,
	}
}

// Lock 获取数据的锁，返回的函数用于释放
func (l *ItemLocker) Lock(ctx context.Context, itemID uint) (func(), error) {
	e := l.ref(itemID)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.unref(itemID)
		return nil, ctx.Err()
	}

	localUnlock := func() {
		<-e.ch
		l.unref(itemID)
	}

	if l.redis == nil {
		return localUnlock, nil
	}

	key := fmt.Sprintf("item:%d", itemID)
	token, err := l.redis.Acquire(ctx, key)
	if err != nil {
		localUnlock()
		return nil, fmt.Errorf("获取数据锁失败: %w", err)
	}

	return func() {
		if err := l.redis.Release(context.Background(), key, token); err != nil {
			l.logger.WithError(err).WithField("item_id", itemID).Warn("释放分布式锁失败")
		}
		localUnlock()
	}, nil
}

func (l *ItemLocker) ref(itemID uint) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[itemID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.entries[itemID] = e
	}
	e.refs++
	return e
}

func (l *ItemLocker) unref(itemID uint) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e := l.entries[itemID]
	e.refs--
	if e.refs == 0 {
		delete(l.entries, itemID)
	}
}
