package irys

import (
	"time"

	"github.com/cockroachdb/errors"
)

// Config Irys 上传节点配置
type Config struct {
	// NodeURL 主上传节点
	NodeURL string `mapstructure:"node_url" json:"node_url" yaml:"node_url"`
	// FallbackNodeURL 主节点失败时的备用节点
	FallbackNodeURL string `mapstructure:"fallback_node_url" json:"fallback_node_url" yaml:"fallback_node_url"`
	// GatewayURL 上传内容的读取网关
	GatewayURL string `mapstructure:"gateway_url" json:"gateway_url" yaml:"gateway_url"`
	// RequestTimeout 单次 HTTP 请求超时
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		NodeURL:         "https://node1.irys.xyz",
		FallbackNodeURL: "https://node2.irys.xyz",
		GatewayURL:      "https://gateway.irys.xyz",
		RequestTimeout:  30 * time.Second,
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.NodeURL == "" {
		return errors.New("irys: node_url is required")
	}
	if c.GatewayURL == "" {
		return errors.New("irys: gateway_url is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("irys: request_timeout must be positive")
	}
	return nil
}
