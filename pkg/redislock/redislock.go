package redislock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrNotHeld 锁已过期或被其他持有者获取
var ErrNotHeld = errors.New("redis lock not held")

// 仅当值与令牌一致时删除，避免释放别人的锁
var releaseScript = redis.NewScript(
	`if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0`,
)

// Locker 基于Redis的互斥锁
type Locker struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	interval  time.Duration
}

// NewLocker 创建Redis锁，ttl 为锁的最长持有时间
func NewLocker(client *redis.Client, keyPrefix string, ttl time.Duration) *Locker {
	return &Locker{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		interval:  50 * time.Millisecond,
	}
}

// TryAcquire 尝试获取锁，成功时返回令牌
func (l *Locker) TryAcquire(ctx context.Context, key string) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("获取Redis锁失败: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Acquire 阻塞直到获取锁或 ctx 结束
func (l *Locker) Acquire(ctx context.Context, key string) (string, error) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		token, ok, err := l.TryAcquire(ctx, key)
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release 释放锁
func (l *Locker) Release(ctx context.Context, key, token string) error {
	result, err := releaseScript.Run(ctx, l.client, []string{l.keyPrefix + key}, token).Int()
	if err != nil {
		return fmt.Errorf("释放Redis锁失败: %w", err)
	}
	if result == 0 {
		return ErrNotHeld
	}
	return nil
}
