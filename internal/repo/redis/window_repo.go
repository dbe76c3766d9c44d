package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// WindowRepo counts events inside fixed TTL windows. The first increment of a
// key arms its expiry, so a window starts at the first event and vanishes on
// its own once idle.
type WindowRepo struct {
	client *goredis.Client
}

func NewWindowRepo(client *goredis.Client) *WindowRepo {
	return &WindowRepo{client: client}
}

func (r *WindowRepo) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, errors.New("redis client is nil")
	}
	if key == "" || window <= 0 {
		return 0, 0, fmt.Errorf("invalid window payload")
	}

	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, fmt.Errorf("increment window key: %w", err)
	}

	count := incr.Val()
	ttl := ttlCmd.Val()
	if ttl < 0 {
		// Fresh key, or a key that lost its expiry: (re)arm it.
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("arm window ttl: %w", err)
		}
		ttl = window
	}

	return count, ttl, nil
}

func (r *WindowRepo) State(ctx context.Context, key string) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, errors.New("redis client is nil")
	}
	if key == "" {
		return 0, 0, fmt.Errorf("window key is required")
	}

	count, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("get window state: %w", err)
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("read window ttl: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}

	return count, ttl, nil
}
