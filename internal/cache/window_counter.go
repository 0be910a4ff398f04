package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowCounter counts events per key in fixed windows.
type WindowCounter struct {
	rdb *redis.Client
}

func NewWindowCounter(rdb *redis.Client) *WindowCounter {
	return &WindowCounter{rdb: rdb}
}

// Incr increments key and returns the new count. The key expires with the
// window.
func (w *WindowCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := w.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return incr.Val(), nil
}
