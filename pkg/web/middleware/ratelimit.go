package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/solpet-labs/solpet/pkg/logger"
	"golang.org/x/time/rate"
)

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// RequestsPerSecond 每秒请求数
	RequestsPerSecond int
	// Burst 突发容量
	Burst int
	// PerIP 是否按 IP 限流
	PerIP bool
	// MaxLimiters 按 IP 限流器数量上限，超出后新来源退回全局限流器
	MaxLimiters int
	// SkipPaths 跳过的路径
	SkipPaths []string
	// LimiterTTL 单 IP 限流器过期时间
	LimiterTTL time.Duration
	// CleanupInterval 清理间隔
	CleanupInterval time.Duration
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 限流器
type RateLimiter struct {
	cfg      *RateLimitConfig
	global   *rate.Limiter
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	logger   logger.Logger
	done     chan struct{}
}

// NewRateLimiter 创建限流器
func NewRateLimiter(l logger.Logger, cfg *RateLimitConfig) *RateLimiter {
	if cfg.LimiterTTL == 0 {
		cfg.LimiterTTL = 10 * time.Minute
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.MaxLimiters == 0 {
		cfg.MaxLimiters = 10000
	}

	rl := &RateLimiter{
		cfg:      cfg,
		global:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		limiters: make(map[string]*limiterEntry),
		logger:   l.Named("middleware.ratelimit"),
		done:     make(chan struct{}),
	}

	if cfg.PerIP {
		go rl.cleanupLoop()
	}
	return rl
}

// Allow 判断指定键是否放行
func (rl *RateLimiter) Allow(key string) bool {
	if !rl.cfg.PerIP {
		return rl.global.Allow()
	}

	rl.mu.Lock()
	entry, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= rl.cfg.MaxLimiters {
			rl.mu.Unlock()
			return rl.global.Allow()
		}
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(rl.cfg.RequestsPerSecond), rl.cfg.Burst),
		}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	rl.mu.Unlock()

	return entry.limiter.Allow()
}

// Close 停止清理协程
func (rl *RateLimiter) Close() {
	close(rl.done)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.cfg.LimiterTTL)
			rl.mu.Lock()
			for key, entry := range rl.limiters {
				if entry.lastSeen.Before(cutoff) {
					delete(rl.limiters, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

// RateLimit 限流中间件
func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(rl.cfg.SkipPaths))
	for _, p := range rl.cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		if !rl.Allow(c.ClientIP()) {
			rl.logger.Warn("request rate limited",
				"ip", c.ClientIP(),
				"path", c.Request.URL.Path,
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			return
		}
		c.Next()
	}
}
