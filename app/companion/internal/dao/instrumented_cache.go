package dao

import (
	"context"

	"github.com/solpet-labs/solpet/app/companion/internal/classify"
	"github.com/solpet-labs/solpet/app/companion/internal/metrics"
)

// instrumentedCache 在缓存外包一层命中计数
type instrumentedCache struct {
	inner   classify.Cache
	metrics *metrics.Metrics
}

// WithMetrics 为缓存加上命中/未命中计数
func WithMetrics(inner classify.Cache, m *metrics.Metrics) classify.Cache {
	if m == nil {
		return inner
	}
	return &instrumentedCache{inner: inner, metrics: m}
}

func (c *instrumentedCache) GetClassification(ctx context.Context, wallet, signature string) (*classify.Classification, bool) {
	result, ok := c.inner.GetClassification(ctx, wallet, signature)
	if ok {
		c.metrics.ClassifyCache.WithLabelValues("hit").Inc()
	} else {
		c.metrics.ClassifyCache.WithLabelValues("miss").Inc()
	}
	return result, ok
}

func (c *instrumentedCache) SetClassification(ctx context.Context, wallet, signature string, result *classify.Classification) {
	c.inner.SetClassification(ctx, wallet, signature, result)
}
