// Package dao 提供分类结果等数据的缓存访问
package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/solpet-labs/solpet/app/companion/internal/classify"
	"github.com/solpet-labs/solpet/pkg/database/redis"
	"github.com/solpet-labs/solpet/pkg/logger"
)

// classificationTTL 已确认交易的分类不可变，仍设过期防止无限膨胀
const classificationTTL = 7 * 24 * time.Hour

// ClassificationCache 基于 Redis 的分类结果缓存
// client 为 nil 时所有操作退化为未命中
type ClassificationCache struct {
	client *redis.Client
	logger logger.Logger
}

// NewClassificationCache 创建缓存
func NewClassificationCache(client *redis.Client, l logger.Logger) *ClassificationCache {
	if l == nil {
		l = logger.Default()
	}
	return &ClassificationCache{
		client: client,
		logger: l.Named("dao.classification"),
	}
}

func classificationKey(wallet, signature string) string {
	return fmt.Sprintf("classify:%s:%s", wallet, signature)
}

// GetClassification 查缓存，未命中或反序列化失败返回 false
func (c *ClassificationCache) GetClassification(ctx context.Context, wallet, signature string) (*classify.Classification, bool) {
	if c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, classificationKey(wallet, signature))
	if err != nil {
		if err != redis.ErrNil {
			c.logger.Warn("classification cache read failed", "signature", signature, "error", err)
		}
		return nil, false
	}

	var result classify.Classification
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		c.logger.Warn("drop corrupt classification cache entry", "signature", signature, "error", err)
		_ = c.client.Del(ctx, classificationKey(wallet, signature))
		return nil, false
	}
	return &result, true
}

// SetClassification 写缓存，失败只记日志
func (c *ClassificationCache) SetClassification(ctx context.Context, wallet, signature string, result *classify.Classification) {
	if c.client == nil || result == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, classificationKey(wallet, signature), string(raw), classificationTTL); err != nil {
		c.logger.Warn("classification cache write failed", "signature", signature, "error", err)
	}
}
