package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ArtifactKey returns the cache key marking one file of a published bundle as downloadable
func (r *CacheKeyStruct) ArtifactKey(bundle, filename string) string {
	return fmt.Sprintf("artifact:%s/%s", bundle, filename)
}

// GenerateRateLimitKey returns the counter key for a client in one rate window
func (r *CacheKeyStruct) GenerateRateLimitKey(clientIP string, window int64) string {
	return fmt.Sprintf("ratelimit:generate:%s:%d", clientIP, window)
}

var CacheKey = NewCacheKeyStruct()
