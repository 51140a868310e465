package dao

import (
	"context"
	"time"

	"github.com/solpet-labs/solpet/app/companion/internal/classify"
	"github.com/solpet-labs/solpet/pkg/cache/lru"
)

// MemoryClassificationCache 进程内分类缓存，未配置 Redis 时使用
type MemoryClassificationCache struct {
	cache *lru.LRU[string, *classify.Classification]
}

// NewMemoryClassificationCache 创建进程内分类缓存
func NewMemoryClassificationCache(maxSize int) *MemoryClassificationCache {
	if maxSize <= 0 {
		maxSize = 4096
	}
	return &MemoryClassificationCache{
		cache: lru.New[string, *classify.Classification](&lru.Config{
			MaxSize:         maxSize,
			DefaultTTL:      classificationTTL,
			CleanupInterval: time.Minute,
		}),
	}
}

func (c *MemoryClassificationCache) GetClassification(_ context.Context, wallet, signature string) (*classify.Classification, bool) {
	return c.cache.Get(classificationKey(wallet, signature))
}

func (c *MemoryClassificationCache) SetClassification(_ context.Context, wallet, signature string, result *classify.Classification) {
	c.cache.Set(classificationKey(wallet, signature), result)
}

// Close 停止后台清理
func (c *MemoryClassificationCache) Close() error {
	return c.cache.Close()
}
