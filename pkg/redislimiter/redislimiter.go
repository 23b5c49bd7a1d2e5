package redislimiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// ErrLimitReached 槽位已满
var ErrLimitReached = errors.New("concurrency limit reached")

var acquireScript = redis.NewScript(
	`local current = redis.call('GET', KEYS[1])
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	if current >= tonumber(ARGV[1]) then
		return current + 1
	end

	local newCount = redis.call('INCR', KEYS[1])
	redis.call('EXPIRE', KEYS[1], tonumber(ARGV[2]))
	return newCount`,
)

var releaseScript = redis.NewScript(
	`local count = redis.call('DECR', KEYS[1])
	if tonumber(count) <= 0 then
		redis.call('DEL', KEYS[1])
		return 0
	end
	redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
	return count`,
)

// RedisLimiter 基于Redis的跨进程并发限制器，按模型计数
type RedisLimiter struct {
	client        *redis.Client
	maxConcurrent int
	keyPrefix     string
	ttl           time.Duration
	interval      time.Duration
	logger        logrus.FieldLogger
}

// NewRedisLimiter 创建基于Redis的并发限制器
func NewRedisLimiter(client *redis.Client, maxConcurrent int, keyPrefix string, ttl time.Duration, logger logrus.FieldLogger) *RedisLimiter {
	return &RedisLimiter{
		client:        client,
		maxConcurrent: maxConcurrent,
		keyPrefix:     keyPrefix,
		ttl:           ttl,
		interval:      200 * time.Millisecond,
		logger:        logger,
	}
}

// TryAcquire 获取并发槽位，已满时返回 ErrLimitReached
func (rl *RedisLimiter) TryAcquire(ctx context.Context, key string) error {
	result, err := acquireScript.Run(ctx, rl.client, []string{rl.keyPrefix + key}, rl.maxConcurrent, int(rl.ttl.Seconds())).Int()
	if err != nil {
		return fmt.Errorf("执行Lua脚本失败: %w", err)
	}

	if result > rl.maxConcurrent {
		return ErrLimitReached
	}

	rl.logger.WithFields(logrus.Fields{"model": key, "slots": result, "max": rl.maxConcurrent}).Debug("获取生成槽位")
	return nil
}

// Acquire 等待直到获取槽位或 ctx 结束
func (rl *RedisLimiter) Acquire(ctx context.Context, key string) error {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()

	for {
		err := rl.TryAcquire(ctx, key)
		if !errors.Is(err, ErrLimitReached) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release 释放并发槽位
func (rl *RedisLimiter) Release(ctx context.Context, key string) {
	remaining, err := releaseScript.Run(ctx, rl.client, []string{rl.keyPrefix + key}, int(rl.ttl.Seconds())).Int()
	if err != nil {
		rl.logger.WithError(err).WithField("model", key).Error("释放生成槽位失败")
		return
	}
	rl.logger.WithFields(logrus.Fields{"model": key, "slots": remaining}).Debug("释放生成槽位")
}

// GetCurrent 获取当前并发数
func (rl *RedisLimiter) GetCurrent(ctx context.Context, key string) (int, error) {
	current, err := rl.client.Get(ctx, rl.keyPrefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("获取当前并发数失败: %w", err)
	}
	return current, nil
}
