package sentry

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

// Client Sentry 客户端
// New 会把 SDK 客户端绑定到全局 Hub，Recovery 中间件经由全局 Hub 上报 panic
type Client struct {
	hub    *sentry.Hub // 全局 Hub
	config *Config     // 配置
	closed atomic.Bool // 关闭状态
}

// New 创建 Sentry 客户端并绑定全局 Hub
func New(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := sentry.NewClient(cfg.toClientOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to create sentry client: %w", err)
	}

	hub := sentry.CurrentHub()
	hub.BindClient(client)

	// 设置全局标签
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for key, value := range cfg.Tags {
			scope.SetTag(key, value)
		}
	})

	return &Client{
		hub:    hub,
		config: cfg,
	}, nil
}

// CaptureException 捕获异常
func (c *Client) CaptureException(err error) *sentry.EventID {
	if c.closed.Load() || err == nil {
		return nil
	}
	return c.hub.CaptureException(err)
}

// RecoverWithContext 上报 panic（不重新抛出）
func (c *Client) RecoverWithContext(recovered interface{}) *sentry.EventID {
	if c.closed.Load() {
		return nil
	}
	return c.hub.RecoverWithContext(nil, recovered)
}

// Hub 获取底层 Hub（高级用户使用）
func (c *Client) Hub() *sentry.Hub {
	return c.hub
}

// Flush 等待所有事件上报完成
func (c *Client) Flush(timeout time.Duration) bool {
	return c.hub.Flush(timeout)
}

// Close 关闭客户端并解除全局 Hub 绑定
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}

	c.hub.Flush(c.config.ShutdownTimeout)
	c.hub.BindClient(nil)
	return nil
}
