// Package cache holds the Redis-backed state shared between server
// instances: which published files are still downloadable and per-client
// request counters.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-quizgen/internal/config"
	"github.com/stemsi/exstem-quizgen/internal/storage"
)

// ArtifactIndex records published files with an expiry. A file is served only
// while its key exists.
type ArtifactIndex struct {
	rdb *redis.Client
}

func NewArtifactIndex(rdb *redis.Client) *ArtifactIndex {
	return &ArtifactIndex{rdb: rdb}
}

// Register marks refs as downloadable for ttl.
func (i *ArtifactIndex) Register(ctx context.Context, refs []storage.Ref, ttl time.Duration) error {
	if len(refs) == 0 {
		return nil
	}
	pipe := i.rdb.Pipeline()
	now := time.Now().Unix()
	for _, ref := range refs {
		pipe.Set(ctx, config.CacheKey.ArtifactKey(ref.Bundle, ref.Name), now, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("register artifacts: %w", err)
	}
	return nil
}

// Exists reports whether ref is registered and not expired.
func (i *ArtifactIndex) Exists(ctx context.Context, ref storage.Ref) (bool, error) {
	n, err := i.rdb.Exists(ctx, config.CacheKey.ArtifactKey(ref.Bundle, ref.Name)).Result()
	if err != nil {
		return false, fmt.Errorf("check artifact: %w", err)
	}
	return n == 1, nil
}

// Forget removes refs from the index.
func (i *ArtifactIndex) Forget(ctx context.Context, refs []storage.Ref) error {
	if len(refs) == 0 {
		return nil
	}
	keys := make([]string, len(refs))
	for n, ref := range refs {
		keys[n] = config.CacheKey.ArtifactKey(ref.Bundle, ref.Name)
	}
	return i.rdb.Del(ctx, keys...).Err()
}
