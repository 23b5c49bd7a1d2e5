package redislimiter

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

func TestRedisLimiterSlots(t *testing.T) {
	addr := os.Getenv("REVIEW_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("未设置 REVIEW_TEST_REDIS_ADDR")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctx := context.Background()
	limiter := NewRedisLimiter(client, 2, "review:test:slots:", 10*time.Second, logger)
	key := t.Name()

	for i := 0; i < 2; i++ {
		if err := limiter.TryAcquire(ctx, key); err != nil {
			t.Fatalf("TryAcquire() #%d error = %v", i, err)
		}
	}
	if err := limiter.TryAcquire(ctx, key); !errors.Is(err, ErrLimitReached) {
		t.Fatalf("TryAcquire() error = %v, want ErrLimitReached", err)
	}

	limiter.Release(ctx, key)
	if current, _ := limiter.GetCurrent(ctx, key); current != 1 {
		t.Errorf("GetCurrent() = %d, want 1", current)
	}
	limiter.Release(ctx, key)
	if current, _ := limiter.GetCurrent(ctx, key); current != 0 {
		t.Errorf("GetCurrent() = %d, want 0", current)
	}
}
